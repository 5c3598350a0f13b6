// Package common holds the data model shared by every pipeline (Record,
// Occurrence, Stats) and the policy operations §4.7 describes as common to
// all three pipelines: skip, shouldDelete, duplicate, tag, insert, lookup,
// plus the two small UI helpers (nameScroller, spinner).
package common

import "time"

// Occurrence represents one observation of a work in the file system (§3).
type Occurrence struct {
	ID        string `json:"id"`
	File      string `json:"file"`
	Path      string `json:"path"`
	Name      string `json:"name"`
	Extension string `json:"extension"`
	Size      int64  `json:"size"`
	Timestamp int64  `json:"timestamp"` // mtime, milliseconds since epoch
}

// Sound holds the result of video sound detection (§4.10 step 13).
type Sound struct {
	Silent bool    `json:"silent"`
	Mean   float64 `json:"mean"`
	Max    float64 `json:"max"`
}

// DefaultSilentSound is the sentinel returned when sound detection is
// disabled or its output could not be parsed.
var DefaultSilentSound = Sound{Silent: true, Mean: -91, Max: -91}

// Metadata is the record's mutable bookkeeping block (§3).
type Metadata struct {
	Created    int64        `json:"created"` // source mtime, ms
	Added      int64        `json:"added"`
	Updated    int64        `json:"updated"`
	Occurrences []Occurrence `json:"occurrences"`
	Series     string       `json:"series,omitempty"`
	Views      int          `json:"views"`
	Stars      int          `json:"stars"`
	Favorited  bool         `json:"favorited"`
	Reviewed   bool         `json:"reviewed"`
	Private    bool         `json:"private"`
	Tags       []string     `json:"tags"`
}

// Object identifies the media kind a record belongs to.
type Object string

const (
	ObjectImage Object = "image"
	ObjectText  Object = "text"
	ObjectVideo Object = "video"
)

// Record is the catalog entity described in §3.
type Record struct {
	ID          string   `json:"id"`
	Object      Object   `json:"object"`
	Version     string   `json:"version"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Hash        string   `json:"hash"`
	Sources     []string `json:"sources"`
	Relative    string   `json:"relative"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
	Preview     string   `json:"preview,omitempty"`
	Subtitles   string   `json:"subtitles,omitempty"`
	Size        int64    `json:"size"`

	Duration    float64 `json:"duration,omitempty"`
	Aspect      float64 `json:"aspect,omitempty"`
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
	Sound       *Sound  `json:"sound,omitempty"`
	Compression string  `json:"compression,omitempty"`

	Metadata Metadata `json:"metadata"`
	Deleted  bool     `json:"deleted"`
}

// AddSource adds fingerprint to Sources if not already present.
func (r *Record) AddSource(fingerprint string) {
	for _, s := range r.Sources {
		if s == fingerprint {
			return
		}
	}
	r.Sources = append(r.Sources, fingerprint)
}

// HasOccurrenceFile reports whether an occurrence with this file path is
// already recorded (§3 invariant: no two occurrences share a file).
func (r *Record) HasOccurrenceFile(file string) bool {
	for _, o := range r.Metadata.Occurrences {
		if o.File == file {
			return true
		}
	}
	return false
}

// RebuildSources recomputes Sources as the union required by §4.11:
// {id, hash} ∪ {every occurrence's id}.
func (r *Record) RebuildSources() {
	seen := make(map[string]bool, len(r.Metadata.Occurrences)+2)
	sources := make([]string, 0, len(r.Metadata.Occurrences)+2)

	add := func(fp string) {
		if fp == "" || seen[fp] {
			return
		}
		seen[fp] = true
		sources = append(sources, fp)
	}

	add(r.ID)
	add(r.Hash)
	for _, o := range r.Metadata.Occurrences {
		add(o.ID)
	}

	r.Sources = sources
}

// NowMillis is the single place the pipelines derive "now" from, matching
// spec §3's millisecond timestamps.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
