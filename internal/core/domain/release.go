package domain

import "time"

// NZBStatusAdded marks a release whose NZB has been imported.
const NZBStatusAdded = 1

// Release is the subset of a release row the NFO pipeline reads.
type Release struct {
	ID         int64     `db:"id"`
	GUID       string    `db:"guid"`
	GroupID    int64     `db:"groups_id"`
	GroupName  string    `db:"group_name"`
	Name       string    `db:"name"`
	Size       int64     `db:"size"`
	NfoStatus  NfoStatus `db:"nfostatus"`
	NZBStatus  int       `db:"nzbstatus"`
	Completion float64   `db:"completion"`
	PostDate   time.Time `db:"postdate"`
}

// ReleaseSummary is a release selected for an NFO attempt.
type ReleaseSummary struct {
	ID        int64     `db:"id"`
	GUID      string    `db:"guid"`
	GroupID   int64     `db:"groups_id"`
	GroupName string    `db:"group_name"`
	Name      string    `db:"name"`
	NfoStatus NfoStatus `db:"nfostatus"`
	PostDate  time.Time `db:"postdate"`
}
