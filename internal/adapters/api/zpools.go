package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/zpools-io/zpools-cli/internal/domain"
	"github.com/zpools-io/zpools-cli/internal/ports"
)

var _ ports.ZpoolAPI = (*Client)(nil)

type zpoolWire struct {
	ZpoolID       string       `json:"zpool_id"`
	Name          string       `json:"name"`
	SizeGiB       int          `json:"size_gb"`
	VolumeType    string       `json:"volume_type"`
	Status        string       `json:"status"`
	Username      string       `json:"username"`
	CreateTime    string       `json:"create_time"`
	LastScrubTime string       `json:"last_scrub_time"`
	Volumes       []volumeWire `json:"volumes"`
}

func (w zpoolWire) toDomain(key string) domain.Zpool {
	zpool := domain.Zpool{
		ID:            domain.ZpoolID(firstNonEmpty(key, w.ZpoolID)),
		Name:          w.Name,
		SizeGiB:       w.SizeGiB,
		VolumeType:    w.VolumeType,
		Status:        w.Status,
		Username:      w.Username,
		CreateTime:    parseOptionalTime(w.CreateTime),
		LastScrubTime: parseOptionalTime(w.LastScrubTime),
		Volumes:       make([]domain.Volume, 0, len(w.Volumes)),
	}
	for _, volume := range w.Volumes {
		zpool.Volumes = append(zpool.Volumes, volume.toDomain())
	}
	return zpool
}

// volumeWire accepts the EC2-style PascalCase keys the service forwards as
// well as their snake_case spelling.
type volumeWire struct {
	VolumeID     string
	State        string
	ModState     string
	ModProgress  int
	VolumeType   string
	SizeGiB      int
	ModLastTime  string
	CanModifyNow *bool
}

func (v *volumeWire) UnmarshalJSON(data []byte) error {
	var pascal struct {
		VolumeID     string `json:"VolumeId"`
		State        string `json:"State"`
		ModState     string `json:"ModState"`
		ModProgress  *int   `json:"ModProgress"`
		VolumeType   string `json:"VolumeType"`
		Size         *int   `json:"Size"`
		ModLastTime  string `json:"ModLastTime"`
		CanModifyNow *bool  `json:"CanModifyNow"`
	}
	if err := json.Unmarshal(data, &pascal); err != nil {
		return err
	}

	var snake struct {
		VolumeID     string `json:"volume_id"`
		ModState     string `json:"mod_state"`
		ModProgress  *int   `json:"mod_progress"`
		VolumeType   string `json:"volume_type"`
		SizeGB       *int   `json:"size_gb"`
		ModLastTime  string `json:"mod_last_time"`
		CanModifyNow *bool  `json:"can_modify_now"`
	}
	if err := json.Unmarshal(data, &snake); err != nil {
		return err
	}

	*v = volumeWire{
		VolumeID:     firstNonEmpty(pascal.VolumeID, snake.VolumeID),
		State:        pascal.State,
		ModState:     firstNonEmpty(pascal.ModState, snake.ModState),
		ModProgress:  firstNonNil(pascal.ModProgress, snake.ModProgress),
		VolumeType:   firstNonEmpty(pascal.VolumeType, snake.VolumeType),
		SizeGiB:      firstNonNil(pascal.Size, snake.SizeGB),
		ModLastTime:  firstNonEmpty(pascal.ModLastTime, snake.ModLastTime),
		CanModifyNow: pascal.CanModifyNow,
	}
	if v.CanModifyNow == nil {
		v.CanModifyNow = snake.CanModifyNow
	}
	return nil
}

func (v volumeWire) toDomain() domain.Volume {
	return domain.Volume{
		ID:           v.VolumeID,
		State:        v.State,
		ModState:     v.ModState,
		ModProgress:  v.ModProgress,
		VolumeType:   v.VolumeType,
		SizeGiB:      v.SizeGiB,
		ModLastTime:  parseOptionalTime(v.ModLastTime),
		CanModifyNow: v.CanModifyNow,
	}
}

type submitDetail struct {
	JobID   string `json:"job_id"`
	ZpoolID string `json:"zpool_id"`
}

type createZpoolRequest struct {
	SizeGiB    int    `json:"new_size_in_gib"`
	VolumeType string `json:"volume_type"`
}

type modifyZpoolRequest struct {
	VolumeType string `json:"volume_type,omitempty"`
	SizeGiB    int    `json:"new_size_in_gib,omitempty"`
}

func (c *Client) ListZpools(ctx context.Context) ([]domain.Zpool, error) {
	var resp envelope[struct {
		Zpools map[string]zpoolWire `json:"zpools"`
	}]
	if err := c.do(ctx, request{method: http.MethodGet, path: "zpools", authenticated: true}, &resp); err != nil {
		return nil, err
	}

	zpools := make([]domain.Zpool, 0, len(resp.Detail.Zpools))
	for key, wire := range resp.Detail.Zpools {
		zpools = append(zpools, wire.toDomain(key))
	}
	return zpools, nil
}

func (c *Client) CreateZpool(ctx context.Context, req domain.CreateZpoolRequest) (domain.SubmitResult, error) {
	return c.submit(ctx, request{
		method:        http.MethodPost,
		path:          "zpool",
		body:          createZpoolRequest{SizeGiB: req.SizeGiB, VolumeType: req.VolumeType},
		authenticated: true,
	})
}

func (c *Client) ModifyZpool(ctx context.Context, id domain.ZpoolID, req domain.ModifyZpoolRequest) (domain.SubmitResult, error) {
	return c.submit(ctx, request{
		method:        http.MethodPost,
		path:          "zpool/" + escapeID(id) + "/modify",
		body:          modifyZpoolRequest{VolumeType: req.VolumeType, SizeGiB: req.SizeGiB},
		authenticated: true,
	})
}

func (c *Client) ScrubZpool(ctx context.Context, id domain.ZpoolID) (domain.SubmitResult, error) {
	return c.submit(ctx, request{method: http.MethodPost, path: "zpool/" + escapeID(id) + "/scrub", authenticated: true})
}

func (c *Client) DeleteZpool(ctx context.Context, id domain.ZpoolID) (domain.SubmitResult, error) {
	return c.submit(ctx, request{method: http.MethodDelete, path: "zpool/" + escapeID(id), authenticated: true})
}

// submit posts an asynchronous action. The detail may be an object carrying
// job and zpool ids or a bare status string.
func (c *Client) submit(ctx context.Context, req request) (domain.SubmitResult, error) {
	var resp envelope[json.RawMessage]
	if err := c.do(ctx, req, &resp); err != nil {
		return domain.SubmitResult{}, err
	}

	result := domain.SubmitResult{Message: resp.Message}
	var detail submitDetail
	if err := json.Unmarshal(resp.Detail, &detail); err == nil {
		result.JobID = domain.JobID(detail.JobID)
		result.ZpoolID = domain.ZpoolID(detail.ZpoolID)
		return result, nil
	}

	var text string
	if err := json.Unmarshal(resp.Detail, &text); err == nil && result.Message == "" {
		result.Message = text
	}
	return result, nil
}

func parseOptionalTime(value string) *time.Time {
	ts, ok, err := domain.ParseTimestamp(value)
	if err != nil || !ok {
		return nil
	}
	return &ts
}

func firstNonNil(values ...*int) int {
	for _, value := range values {
		if value != nil {
			return *value
		}
	}
	return 0
}
