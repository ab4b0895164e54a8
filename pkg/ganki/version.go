// Package ganki holds build metadata for the ganki deck editor.
package ganki

// Version is the release version reported by `ganki version`.
const Version = "0.1.0"
