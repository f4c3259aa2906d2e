package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/zpools-io/zpools-cli/internal/domain"
	"github.com/zpools-io/zpools-cli/internal/ports"
)

const DefaultVolumePollInterval = 30 * time.Second

type ZpoolService struct {
	zpools    ports.ZpoolAPI
	refresher ports.CredentialRefresher
	render    RenderFunc[domain.VolumeSnapshot]
	clock     ports.Clock
	logger    *zap.Logger
}

func NewZpoolService(zpools ports.ZpoolAPI, refresher ports.CredentialRefresher, render RenderFunc[domain.VolumeSnapshot], clock ports.Clock, logger *zap.Logger) *ZpoolService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ZpoolService{
		zpools:    zpools,
		refresher: refresher,
		render:    render,
		clock:     clock,
		logger:    logger,
	}
}

func (s *ZpoolService) List(ctx context.Context) ([]domain.Zpool, error) {
	zpools, err := s.zpools.ListZpools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list zpools: %w", err)
	}

	sort.Slice(zpools, func(i, j int) bool { return zpools[i].ID < zpools[j].ID })
	return zpools, nil
}

func (s *ZpoolService) Get(ctx context.Context, id domain.ZpoolID) (domain.Zpool, error) {
	zpools, err := s.zpools.ListZpools(ctx)
	if err != nil {
		return domain.Zpool{}, fmt.Errorf("list zpools: %w", err)
	}

	for _, zpool := range zpools {
		if zpool.ID == id {
			return zpool, nil
		}
	}

	return domain.Zpool{}, fmt.Errorf("zpool %s: %w", id, domain.ErrZpoolNotFound)
}

// LastModifiedTime is the latest volume modification of the zpool, nil when
// none was recorded.
func (s *ZpoolService) LastModifiedTime(ctx context.Context, id domain.ZpoolID) (*time.Time, error) {
	zpool, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return zpool.LastModifiedTime(), nil
}

func (s *ZpoolService) Cooldown(ctx context.Context, id domain.ZpoolID) (domain.Cooldown, error) {
	last, err := s.LastModifiedTime(ctx, id)
	if err != nil {
		return domain.Cooldown{}, err
	}

	info, err := domain.CooldownInfo(last, domain.CooldownDuration, s.clock.Now())
	if err != nil {
		return domain.Cooldown{}, fmt.Errorf("cooldown for zpool %s: %w", id, err)
	}
	return info, nil
}

func (s *ZpoolService) Create(ctx context.Context, req domain.CreateZpoolRequest) (domain.SubmitResult, error) {
	if req.SizeGiB <= 0 {
		req.SizeGiB = domain.DefaultZpoolSizeGiB
	}
	if req.VolumeType == "" {
		req.VolumeType = domain.VolumeTypeGP3
	}
	if err := validateVolumeType(req.VolumeType); err != nil {
		return domain.SubmitResult{}, err
	}

	result, err := s.zpools.CreateZpool(ctx, req)
	if err != nil {
		return domain.SubmitResult{}, fmt.Errorf("create zpool: %w", err)
	}
	return result, nil
}

// Modify submits a volume modification. It refuses to submit while the zpool
// is inside its cooldown window.
func (s *ZpoolService) Modify(ctx context.Context, id domain.ZpoolID, req domain.ModifyZpoolRequest) (domain.SubmitResult, error) {
	if err := ValidateModifyRequest(req); err != nil {
		return domain.SubmitResult{}, err
	}

	info, err := s.Cooldown(ctx, id)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if info.InCooldown {
		return domain.SubmitResult{}, fmt.Errorf("zpool %s: %w (retry in %s, after %s)", id, domain.ErrInCooldown, info.WaitString, info.RetryString)
	}

	result, err := s.zpools.ModifyZpool(ctx, id, req)
	if err != nil {
		return domain.SubmitResult{}, fmt.Errorf("modify zpool %s: %w", id, err)
	}
	if result.ZpoolID == "" {
		result.ZpoolID = id
	}
	return result, nil
}

func (s *ZpoolService) Scrub(ctx context.Context, id domain.ZpoolID) (domain.SubmitResult, error) {
	result, err := s.zpools.ScrubZpool(ctx, id)
	if err != nil {
		return domain.SubmitResult{}, fmt.Errorf("scrub zpool %s: %w", id, err)
	}
	if result.ZpoolID == "" {
		result.ZpoolID = id
	}
	return result, nil
}

func (s *ZpoolService) Delete(ctx context.Context, id domain.ZpoolID) (domain.SubmitResult, error) {
	result, err := s.zpools.DeleteZpool(ctx, id)
	if err != nil {
		return domain.SubmitResult{}, fmt.Errorf("delete zpool %s: %w", id, err)
	}
	if result.ZpoolID == "" {
		result.ZpoolID = id
	}
	return result, nil
}

// WaitOutCooldown blocks until the cooldown window closes, keeping the
// credential fresh meanwhile. notify, when set, is told about every
// successful refresh.
func (s *ZpoolService) WaitOutCooldown(ctx context.Context, info domain.Cooldown, notify func(next time.Time)) error {
	if !info.InCooldown || info.RetryTime == nil {
		return nil
	}

	schedule := newCredentialSchedule(s.refresher, s.clock, WithRefreshLogger(s.logger), WithRefreshNotifier(notify))

	// Wait for the retry instant itself: WaitSeconds is truncated and was
	// measured before the caller got here.
	wait := info.RetryTime.Sub(s.clock.Now())
	s.logger.Debug("waiting out cooldown", zap.Duration("wait", wait), zap.Time("retry_at", *info.RetryTime))
	return WaitWithRefresh(ctx, s.clock, wait, schedule)
}

// WaitForVolumeModification polls the zpool until none of its volumes is
// modifying or optimizing.
func (s *ZpoolService) WaitForVolumeModification(ctx context.Context, id domain.ZpoolID, opts WaitOptions) (domain.Zpool, error) {
	if opts.Name == "" {
		opts.Name = fmt.Sprintf("Volume modification (%s)", id)
	}
	op := opts.operation(string(id), s.clock.Now(), DefaultVolumePollInterval)

	render := s.render
	if render == nil {
		render = func(domain.MonitoredOperation, domain.VolumeSnapshot, string, time.Duration) string { return "" }
	}

	monitor := &Monitor[domain.VolumeSnapshot]{
		Operation: op,
		Poll: func(ctx context.Context) (domain.VolumeSnapshot, error) {
			zpool, err := s.Get(ctx, id)
			if err != nil {
				return domain.VolumeSnapshot{}, err
			}
			return domain.VolumeSnapshot{Zpool: zpool}, nil
		},
		Render:      render,
		IsComplete:  domain.VolumeModificationComplete,
		RefreshRate: opts.RefreshRate,
		Display:     opts.Display,
		Clock:       s.clock,
		Logger:      s.logger,
	}
	if s.refresher != nil {
		monitor.Refresh = NewRefreshSchedule(s.refresher.Refresh, s.clock, WithRefreshLogger(s.logger))
	}

	snapshot, err := monitor.Run(ctx)
	if err != nil {
		return domain.Zpool{}, err
	}
	return snapshot.Zpool, nil
}

// ValidateModifyRequest checks a modification before anything is submitted
// or waited for.
func ValidateModifyRequest(req domain.ModifyZpoolRequest) error {
	if req.VolumeType == "" && req.SizeGiB <= 0 {
		return errors.New("modify zpool: volume type or size is required")
	}
	if req.VolumeType != "" {
		return validateVolumeType(req.VolumeType)
	}
	return nil
}

func validateVolumeType(volumeType string) error {
	switch volumeType {
	case domain.VolumeTypeGP3, domain.VolumeTypeSC1:
		return nil
	default:
		return fmt.Errorf("invalid volume type %q: must be %s or %s", volumeType, domain.VolumeTypeGP3, domain.VolumeTypeSC1)
	}
}
