package model

import "time"

// ChangeKind is the kind of content change made through the CMS
type ChangeKind string

const (
	ChangeKindPageUpdated   ChangeKind = "page_updated"
	ChangeKindImageUploaded ChangeKind = "image_uploaded"
)

// ChangeEvent describes a successful write, sent to the notifier
type ChangeEvent struct {
	Kind      ChangeKind
	Path      string
	Actor     string
	CommitSHA string
	At        time.Time
}
