package editor

import (
	"slices"
	"strings"

	"github.com/TobiSchelling/conduit/internal/model"
)

// Draft is an article being written or edited.
type Draft struct {
	Title       string
	Description string
	Body        string
	TagList     []string
}

// DraftFrom copies the editable fields of a.
func DraftFrom(a model.Article) Draft {
	return Draft{
		Title:       a.Title,
		Description: a.Description,
		Body:        a.Body,
		TagList:     slices.Clone(a.TagList),
	}
}

// AddTag appends tag after trimming it. Blank and duplicate tags are
// ignored; it reports whether the list changed.
func (d *Draft) AddTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" || slices.Contains(d.TagList, tag) {
		return false
	}
	d.TagList = append(d.TagList, tag)
	return true
}

// AddTags adds every tag in a comma or whitespace separated list.
func (d *Draft) AddTags(list string) {
	for _, tag := range strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	}) {
		d.AddTag(tag)
	}
}

// RemoveTag drops tag from the list, keeping the order of the rest.
func (d *Draft) RemoveTag(tag string) bool {
	i := slices.Index(d.TagList, tag)
	if i < 0 {
		return false
	}
	d.TagList = slices.Delete(d.TagList, i, i+1)
	return true
}

func (d Draft) validate() map[string][]string {
	fields := map[string][]string{}
	if strings.TrimSpace(d.Title) == "" {
		fields["title"] = []string{"can't be blank"}
	}
	if strings.TrimSpace(d.Description) == "" {
		fields["description"] = []string{"can't be blank"}
	}
	if strings.TrimSpace(d.Body) == "" {
		fields["body"] = []string{"can't be blank"}
	}
	return fields
}

// diff returns an update carrying only the fields of d that differ from orig.
func (d Draft) diff(orig Draft) model.ArticleUpdate {
	var upd model.ArticleUpdate
	if d.Title != orig.Title {
		upd.Title = &d.Title
	}
	if d.Description != orig.Description {
		upd.Description = &d.Description
	}
	if d.Body != orig.Body {
		upd.Body = &d.Body
	}
	if !slices.Equal(d.TagList, orig.TagList) {
		tags := slices.Clone(d.TagList)
		if tags == nil {
			tags = []string{}
		}
		upd.TagList = &tags
	}
	return upd
}
