package health

import (
	"net/http"
	"time"

	"github.com/indieinfra/mediacycle/media"
	"github.com/indieinfra/mediacycle/server/resp"
	"github.com/indieinfra/mediacycle/server/state"
)

type lastSweep struct {
	At    time.Time        `json:"at"`
	Stats media.SweepStats `json:"stats"`
}

type status struct {
	Status    string     `json:"status"`
	GC        bool       `json:"gc_enabled"`
	LastSweep *lastSweep `json:"last_sweep,omitempty"`
}

func HandleHealth(st *state.MediacycleState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := status{Status: "ok", GC: st.Cfg.GC.Enabled}

		if st.GC != nil {
			if stats, at := st.GC.Last(); !at.IsZero() {
				out.LastSweep = &lastSweep{At: at, Stats: stats}
			}
		}

		resp.WriteOK(w, out)
	}
}
