package types

// Media is one asset in the shared media store, keyed by Name.
// A nil Data marks a registered placeholder whose bytes were never loaded.
// Package marks the asset for inclusion in the next package export.
type Media struct {
	Name    string    `json:"name" validate:"required"`
	Data    []byte    `json:"data"`
	Info    MediaInfo `json:"info"`
	Package bool      `json:"package"`
}

// MediaInfo carries descriptive metadata for a media asset.
type MediaInfo struct {
	Size int64  `json:"size" validate:"gte=0"`
	Type string `json:"type,omitempty"`
	Desc string `json:"desc,omitempty"`
}

// Loaded reports whether the asset has bytes attached.
func (m *Media) Loaded() bool {
	return m.Data != nil
}

// Validate checks the media record against its struct constraints.
func (m *Media) Validate() error {
	return validateStruct(m)
}
