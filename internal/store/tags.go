package store

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

// TagList is the ordered tag input of the upload form.
// Tags are trimmed and never repeated.
type TagList struct {
	tags []string
}

// NewTagList creates a tag list by adding each tag in order.
func NewTagList(tags ...string) *TagList {
	l := &TagList{tags: []string{}}
	for _, tag := range tags {
		l.Add(tag)
	}
	return l
}

// Add appends tag. Blank tags and tags already present are ignored.
// It reports whether the list changed.
func (l *TagList) Add(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" || lo.Contains(l.tags, tag) {
		return false
	}
	l.tags = append(l.tags, tag)
	return true
}

// Remove deletes one entry equal to tag and reports whether one was found.
func (l *TagList) Remove(tag string) bool {
	i := lo.IndexOf(l.tags, strings.TrimSpace(tag))
	if i < 0 {
		return false
	}
	l.tags = slices.Delete(l.tags, i, i+1)
	return true
}

// Tags returns a copy of the tags in insertion order.
func (l *TagList) Tags() []string {
	if l == nil {
		return []string{}
	}
	return slices.Clone(l.tags)
}

// Len returns the number of tags.
func (l *TagList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.tags)
}
