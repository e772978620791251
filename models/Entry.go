package models

import (
	"context"
	"errors"
	"strings"

	"Scrumble/store"
	"Scrumble/utils/keys"
)

const DefaultTag = "Local"

// entryBatchThreshold is the distinct-id count above which LoadEntries reads
// the whole ENTRY partition once instead of issuing one Get per id.
const entryBatchThreshold = 8

type Entry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Blurb        string `json:"blurb"`
	Neighborhood string `json:"neighborhood"`
	Category     string `json:"category"`
	Tag          string `json:"tag"`
	URL          string `json:"url"`
	ImageURL     string `json:"image_url"`
	Address      string `json:"address"`
}

func (e *Entry) Prepare() {
	e.ID = strings.TrimSpace(e.ID)
	e.Name = strings.TrimSpace(e.Name)
	e.Blurb = strings.TrimSpace(e.Blurb)
	e.Neighborhood = strings.TrimSpace(e.Neighborhood)
	e.Category = strings.TrimSpace(e.Category)
	e.Tag = strings.TrimSpace(e.Tag)
	e.URL = strings.TrimSpace(e.URL)
	e.ImageURL = strings.TrimSpace(e.ImageURL)
	e.Address = strings.TrimSpace(e.Address)
	if e.Tag == "" {
		e.Tag = DefaultTag
	}
}

func (e *Entry) Validate() map[string]string {
	var err error
	var errorMessages = make(map[string]string)

	if e.ID == "" {
		err = errors.New("required entry id")
		errorMessages["Required_id"] = err.Error()
	}
	if e.Name == "" {
		err = errors.New("required entry name")
		errorMessages["Required_name"] = err.Error()
	}
	return errorMessages
}

// EntryFromItem is the single place entry defaults are filled in.
func EntryFromItem(it store.Item) Entry {
	e := Entry{
		ID:           it.String("id"),
		Name:         it.String("name"),
		Blurb:        it.String("blurb"),
		Neighborhood: it.String("neighborhood"),
		Category:     it.String("category"),
		Tag:          it.String("tag"),
		URL:          it.String("url"),
		ImageURL:     it.String("image_url"),
		Address:      it.String("address"),
	}
	if e.ID == "" {
		e.ID = it.SK
	}
	if e.Tag == "" {
		e.Tag = DefaultTag
	}
	return e
}

func (e Entry) Item() store.Item {
	return store.NewItem(keys.EntryPartition, e.ID).
		Set("id", e.ID).
		Set("name", e.Name).
		Set("blurb", e.Blurb).
		Set("neighborhood", e.Neighborhood).
		Set("category", e.Category).
		Set("tag", e.Tag).
		Set("url", e.URL).
		Set("image_url", e.ImageURL).
		Set("address", e.Address)
}

// SaveEntry upserts the entry by id.
func (e *Entry) SaveEntry(ctx context.Context, s store.Store) error {
	return s.Put(ctx, e.Item())
}

// FindEntry returns store.ErrNotFound when the entry is absent.
func FindEntry(ctx context.Context, s store.Store, id string) (Entry, error) {
	it, err := s.Get(ctx, keys.EntryPartition, id)
	if err != nil {
		return Entry{}, err
	}
	return EntryFromItem(it), nil
}

// LoadEntries fetches every distinct id in ids. Ids with no entry are absent
// from the result.
func LoadEntries(ctx context.Context, s store.Store, ids []string) (map[string]Entry, error) {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			wanted[id] = struct{}{}
		}
	}
	out := make(map[string]Entry, len(wanted))
	if len(wanted) == 0 {
		return out, nil
	}

	if len(wanted) > entryBatchThreshold {
		items, err := s.Query(ctx, store.QueryInput{
			PK: keys.EntryPartition,
			Filter: func(it store.Item) bool {
				_, ok := wanted[it.SK]
				return ok
			},
		})
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			out[it.SK] = EntryFromItem(it)
		}
		return out, nil
	}

	for id := range wanted {
		e, err := FindEntry(ctx, s, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = e
	}
	return out, nil
}
