package application

import (
	"bytes"
	"encoding/json"

	"github.com/zpools-io/zpools-cli/internal/domain"
)

const resumeScanLimit = 100

// FindResumable returns the first job in jobs, which must be newest first,
// whose kind matches and, when scopingKey is set, whose parameters name that
// zpool. Jobs with missing or undecodable parameters never match a scoping
// key.
func FindResumable(jobs []domain.Job, kind string, scopingKey string) (domain.Job, error) {
	for _, job := range jobs {
		if job.Kind != kind {
			continue
		}
		if scopingKey != "" {
			zpoolID, ok := zpoolIDFromParameters(job.Parameters)
			if !ok || zpoolID != scopingKey {
				continue
			}
		}
		return job, nil
	}

	return domain.Job{}, &domain.NotFoundError{Kind: kind, ScopingKey: scopingKey}
}

// zpoolIDFromParameters reads zpool_id from a parameters payload that is
// either a JSON object or a JSON string containing one.
func zpoolIDFromParameters(raw json.RawMessage) (string, bool) {
	payload := bytes.TrimSpace(raw)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return "", false
	}

	if payload[0] == '"' {
		var encoded string
		if err := json.Unmarshal(payload, &encoded); err != nil {
			return "", false
		}
		payload = []byte(encoded)
	}

	var params struct {
		ZpoolID string `json:"zpool_id"`
	}
	if err := json.Unmarshal(payload, &params); err != nil {
		return "", false
	}

	return params.ZpoolID, params.ZpoolID != ""
}
