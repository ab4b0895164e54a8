package apkg

import (
	"strconv"

	"github.com/mesh-intelligence/ganki/internal/deck"
)

// JSON documents stored in the col row.

type colConf struct {
	ActiveDecks   []int64 `json:"activeDecks"`
	CurDeck       int64   `json:"curDeck"`
	NewSpread     int     `json:"newSpread"`
	CollapseTime  int     `json:"collapseTime"`
	TimeLim       int     `json:"timeLim"`
	EstTimes      bool    `json:"estTimes"`
	DueCounts     bool    `json:"dueCounts"`
	CurModel      *string `json:"curModel"`
	NextPos       int     `json:"nextPos"`
	SortType      string  `json:"sortType"`
	SortBackwards bool    `json:"sortBackwards"`
	AddToCur      bool    `json:"addToCur"`
}

type modelField struct {
	Name   string `json:"name"`
	Ord    int    `json:"ord"`
	Sticky bool   `json:"sticky"`
	RTL    bool   `json:"rtl"`
	Font   string `json:"font"`
	Size   int    `json:"size"`
	Media  []any  `json:"media"`
}

type modelTemplate struct {
	Name  string `json:"name"`
	Ord   int    `json:"ord"`
	Qfmt  string `json:"qfmt"`
	Afmt  string `json:"afmt"`
	Did   *int64 `json:"did"`
	Bqfmt string `json:"bqfmt"`
	Bafmt string `json:"bafmt"`
}

type colModel struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Type      int             `json:"type"`
	Mod       int64           `json:"mod"`
	Usn       int             `json:"usn"`
	Sortf     int             `json:"sortf"`
	Did       int64           `json:"did"`
	Tmpls     []modelTemplate `json:"tmpls"`
	Flds      []modelField    `json:"flds"`
	CSS       string          `json:"css"`
	LatexPre  string          `json:"latexPre"`
	LatexPost string          `json:"latexPost"`
	Tags      []string        `json:"tags"`
	Vers      []any           `json:"vers"`
	Req       [][]any         `json:"req"`
}

type colDeck struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Desc      string   `json:"desc"`
	Mod       int64    `json:"mod"`
	Usn       int      `json:"usn"`
	Conf      int64    `json:"conf"`
	Dyn       int      `json:"dyn"`
	Collapsed bool     `json:"collapsed"`
	ExtendNew int      `json:"extendNew"`
	ExtendRev int      `json:"extendRev"`
	NewToday  [2]int64 `json:"newToday"`
	RevToday  [2]int64 `json:"revToday"`
	LrnToday  [2]int64 `json:"lrnToday"`
	TimeToday [2]int64 `json:"timeToday"`
}

type deckConf struct {
	ID       int64          `json:"id"`
	Name     string         `json:"name"`
	New      map[string]any `json:"new"`
	Lapse    map[string]any `json:"lapse"`
	Rev      map[string]any `json:"rev"`
	MaxTaken int            `json:"maxTaken"`
	Timer    int            `json:"timer"`
	Autoplay bool           `json:"autoplay"`
	Replayq  bool           `json:"replayq"`
	Mod      int64          `json:"mod"`
	Usn      int            `json:"usn"`
}

const latexPre = `\documentclass[12pt]{article}
\special{papersize=3in,5in}
\usepackage[utf8]{inputenc}
\usepackage{amssymb,amsmath}
\pagestyle{empty}
\setlength{\parindent}{0in}
\begin{document}
`

const latexPost = `\end{document}`

func defaultConf() colConf {
	return colConf{
		ActiveDecks:  []int64{1},
		CurDeck:      1,
		CollapseTime: 1200,
		EstTimes:     true,
		DueCounts:    true,
		NextPos:      1,
		SortType:     "noteFld",
		AddToCur:     true,
	}
}

func defaultDeckConf(mod int64) deckConf {
	return deckConf{
		ID:   1,
		Name: "Default",
		New: map[string]any{
			"delays":        []float64{1, 10},
			"ints":          []int{1, 4, 7},
			"initialFactor": 2500,
			"separate":      true,
			"order":         1,
			"perDay":        20,
			"bury":          true,
		},
		Lapse: map[string]any{
			"delays":      []float64{10},
			"mult":        0,
			"minInt":      1,
			"leechFails":  8,
			"leechAction": 0,
		},
		Rev: map[string]any{
			"perDay":     100,
			"ease4":      1.3,
			"fuzz":       0.05,
			"minSpace":   1,
			"ivlFct":     1,
			"maxIvl":     36500,
			"bury":       true,
			"hardFactor": 1.2,
		},
		MaxTaken: 60,
		Autoplay: true,
		Replayq:  true,
		Mod:      mod,
	}
}

func newDeck(id int64, name string, mod int64) colDeck {
	return colDeck{ID: id, Name: name, Mod: mod, Usn: -1, Conf: 1}
}

func encodeModel(m *deck.Model, did, mod int64) colModel {
	fields := m.Fields()
	flds := make([]modelField, len(fields))
	for i, name := range fields {
		flds[i] = modelField{Name: name, Ord: i, Font: "Arial", Size: 20, Media: []any{}}
	}
	templates := m.Templates()
	tmpls := make([]modelTemplate, len(templates))
	for i, t := range templates {
		tmpls[i] = modelTemplate{Name: t.Name, Ord: i, Qfmt: t.Qfmt, Afmt: t.Afmt}
	}
	var req [][]any
	for _, r := range m.Requirements() {
		req = append(req, []any{r.Template, r.Kind, r.Fields})
	}
	return colModel{
		ID:        strconv.FormatInt(m.ID(), 10),
		Name:      m.Name(),
		Mod:       mod,
		Usn:       -1,
		Did:       did,
		Tmpls:     tmpls,
		Flds:      flds,
		CSS:       m.CSS(),
		LatexPre:  latexPre,
		LatexPost: latexPost,
		Tags:      []string{},
		Vers:      []any{},
		Req:       req,
	}
}
