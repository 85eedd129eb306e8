package domain

import "path"

// ArtifactRef identifies a content artifact inside the live set.
type ArtifactRef struct {
	Category string `json:"category"`
	Slug     string `json:"slug"`
}

// Key is the stable "category/slug" identifier used in run records.
func (r ArtifactRef) Key() string {
	return path.Join(r.Category, r.Slug)
}

func (r ArtifactRef) String() string {
	return r.Key()
}

// Artifact is the raw on-disk state of a generated document.
type Artifact struct {
	Ref     ArtifactRef
	Path    string
	Content []byte
}
