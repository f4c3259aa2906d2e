package ports

import (
	"context"

	"github.com/zpools-io/zpools-cli/internal/domain"
)

type JobAPI interface {
	GetJob(ctx context.Context, id domain.JobID) (domain.Job, error)
	GetJobHistory(ctx context.Context, id domain.JobID) ([]domain.JobEvent, error)
	ListJobs(ctx context.Context, query domain.JobListQuery) ([]domain.Job, error)
}

type ZpoolAPI interface {
	ListZpools(ctx context.Context) ([]domain.Zpool, error)
	CreateZpool(ctx context.Context, req domain.CreateZpoolRequest) (domain.SubmitResult, error)
	ModifyZpool(ctx context.Context, id domain.ZpoolID, req domain.ModifyZpoolRequest) (domain.SubmitResult, error)
	ScrubZpool(ctx context.Context, id domain.ZpoolID) (domain.SubmitResult, error)
	DeleteZpool(ctx context.Context, id domain.ZpoolID) (domain.SubmitResult, error)
}

type Authenticator interface {
	Login(ctx context.Context, username, password string) (domain.LoginResult, error)
}

// CredentialRefresher renews the bearer credential ahead of expiry.
type CredentialRefresher interface {
	Refresh(ctx context.Context) error
}

// LeaseHolder reports the credential lease currently in use.
type LeaseHolder interface {
	Lease() domain.CredentialLease
}
