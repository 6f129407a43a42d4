package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/eerc-node/storage"
	"github.com/vocdoni/eerc-node/types"
)

// info describes the token and the ledger mode
// GET /info
func (a *API) info(w http.ResponseWriter, r *http.Request) {
	httpWriteJSON(w, a.ledger.Info())
}

// records returns a page of the operation log
// GET /records?from=0&limit=50
func (a *API) records(w http.ResponseWriter, r *http.Request) {
	var (
		from  uint64
		limit int
		err   error
	)
	if s := r.URL.Query().Get(FromQueryParam); s != "" {
		if from, err = strconv.ParseUint(s, 10, 64); err != nil {
			ErrMalformedParam.Withf("%s: %v", FromQueryParam, err).Write(w)
			return
		}
	}
	if s := r.URL.Query().Get(LimitQueryParam); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit < 0 {
			ErrMalformedParam.Withf("%s: %q", LimitQueryParam, s).Write(w)
			return
		}
	}
	records, err := a.ledger.Records(from, limit)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	total, err := a.ledger.RecordCount()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	if records == nil {
		records = []*storage.Record{}
	}
	httpWriteJSON(w, &Records{Records: records, Total: total})
}

// record returns one operation record
// GET /records/{index}
func (a *API) record(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(chi.URLParam(r, IndexURLParam), 10, 64)
	if err != nil {
		ErrMalformedParam.Withf("%s: %v", IndexURLParam, err).Write(w)
		return
	}
	rec, err := a.ledger.Record(index)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrRecordNotFound.Withf("%d", index).Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, rec)
}

// reserve returns the custody reserve
// GET /reserve
func (a *API) reserve(w http.ResponseWriter, r *http.Request) {
	reserve, err := a.ledger.Reserve()
	if err != nil {
		ledgerError(err).Write(w)
		return
	}
	httpWriteJSON(w, &Reserve{
		Token:   *a.ledger.Info().Token,
		Reserve: types.NewBigInt(reserve.ToBig()),
	})
}

// stateRoot returns the root of the account state tree
// GET /state/root
func (a *API) stateRoot(w http.ResponseWriter, r *http.Request) {
	root, err := a.ledger.StateRoot()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &StateRoot{Root: root})
}
