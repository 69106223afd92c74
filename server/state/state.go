package state

import (
	"github.com/rs/zerolog"

	"github.com/indieinfra/mediacycle/config"
	"github.com/indieinfra/mediacycle/media"
	"github.com/indieinfra/mediacycle/schedule"
	"github.com/indieinfra/mediacycle/storage/blob"
	"github.com/indieinfra/mediacycle/storage/metadata"
)

type MediacycleState struct {
	Cfg      *config.Config
	Log      zerolog.Logger
	Metadata metadata.Store
	Blobs    blob.Store
	Media    *media.Manager
	GC       *schedule.Runner
}
