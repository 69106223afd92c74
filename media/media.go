// Package media implements the lifecycle of uploaded media: staging, promotion
// into permanent storage, reconciliation on edit, and reclamation of orphans.
package media

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/indieinfra/mediacycle/config"
	"github.com/indieinfra/mediacycle/storage/blob"
	"github.com/indieinfra/mediacycle/storage/metadata"
)

// Manager bundles the lifecycle components over one pair of stores.
type Manager struct {
	*Uploader
	*Promoter
	*Reclaimer

	Namer   *Namer
	Scanner *Scanner
}

func NewManager(rules *config.Media, meta metadata.Store, blobs blob.Store, log zerolog.Logger) (*Manager, error) {
	if rules == nil {
		return nil, fmt.Errorf("media rules are required")
	}
	if meta == nil || blobs == nil {
		return nil, fmt.Errorf("metadata and blob stores are required")
	}

	namer := NewNamer(rules.Categories)
	scanner := NewScanner(blobs.BaseURL())

	return &Manager{
		Uploader:  NewUploader(rules, namer, meta, blobs, log),
		Promoter:  NewPromoter(namer, scanner, meta, blobs, log),
		Reclaimer: NewReclaimer(rules.GracePeriod, meta, blobs, log),
		Namer:     namer,
		Scanner:   scanner,
	}, nil
}
