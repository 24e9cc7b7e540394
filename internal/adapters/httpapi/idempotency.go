package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Overland-East-Bay/profile-privacy-api/internal/domain"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/ports/out/idempotency"
)

const idempotencyKeyHeader = "Idempotency-Key"

// withIdempotency runs handle and writes its 200 response, honoring an optional
// Idempotency-Key header:
// - replay the stored response if the same subject+key+route+body was seen before
// - reject the same subject+key+route with a different body (409)
func (s *Server) withIdempotency(w http.ResponseWriter, r *http.Request, sub domain.UserID, route string, body any, handle func() (any, error)) {
	ctx := r.Context()
	key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
	if key == "" || s.Idem == nil {
		resp, err := handle()
		if err != nil {
			writeAppError(w, r, s.log, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	bodyHash, err := hashBody(body)
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	metaFP := idempotency.Fingerprint{
		Key:      idempotency.Key(key),
		Subject:  sub,
		Method:   r.Method,
		Route:    route,
		BodyHash: "",
	}
	respFP := metaFP
	respFP.BodyHash = bodyHash

	if meta, ok, err := s.Idem.Get(ctx, metaFP); err != nil {
		s.idempotencyFailure(w, r, err)
		return
	} else if ok {
		if string(meta.Body) != bodyHash {
			writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
			return
		}
	} else if err := s.Idem.Put(ctx, metaFP, idempotency.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte(bodyHash),
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		s.idempotencyFailure(w, r, err)
		return
	}

	if rec, ok, err := s.Idem.Get(ctx, respFP); err != nil {
		s.idempotencyFailure(w, r, err)
		return
	} else if ok && rec.StatusCode == http.StatusOK && strings.HasPrefix(rec.ContentType, "application/json") {
		w.Header().Set("Content-Type", rec.ContentType)
		w.WriteHeader(rec.StatusCode)
		_, _ = w.Write(rec.Body)
		return
	}

	resp, err := handle()
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	b, err := json.Marshal(resp)
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	// A failed save only disables replay for this key.
	if err := s.Idem.Put(ctx, respFP, idempotency.Record{
		StatusCode:  http.StatusOK,
		ContentType: "application/json",
		Body:        b,
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		s.log.Warn("idempotency record not saved", zap.String("route", route), zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (s *Server) idempotencyFailure(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error("idempotency store failure", zap.String("path", r.URL.Path), zap.Error(err))
	writeError(w, r, http.StatusServiceUnavailable, "STORAGE_ERROR", "idempotency storage is unavailable", nil)
}

// hashBody hashes the canonical JSON encoding of a decoded request body.
func hashBody(body any) (string, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
