package media

import (
	"context"
	"strings"

	"github.com/BXLSTNRD/FrePathe/internal/clients"
	"github.com/BXLSTNRD/FrePathe/internal/domain"
	"github.com/BXLSTNRD/FrePathe/internal/paths"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

// Uploader hands local reference files to the generation backend, caching
// the resulting external URLs on the project so repeat renders skip the
// upload. Cache entries are soft: revalidated with a HEAD before reuse.
type Uploader interface {
	// ExternalRef resolves a state URL to an externally fetchable URL.
	// Returns dirty=true when the project upload cache gained an entry the
	// caller should persist.
	ExternalRef(ctx context.Context, st *domain.State, url string) (external string, dirty bool, err error)
}

type uploader struct {
	log   *logger.Logger
	paths paths.PathManager
	fal   clients.FALClient
}

func NewUploader(log *logger.Logger, pm paths.PathManager, fal clients.FALClient) Uploader {
	return &uploader{
		log:   log.With("service", "RefUploader"),
		paths: pm,
		fal:   fal,
	}
}

func (u *uploader) ExternalRef(ctx context.Context, st *domain.State, url string) (string, bool, error) {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url, false, nil
	}

	if cached, ok := st.Project.FalUploadCache[url]; ok && cached != "" {
		if err := u.fal.Head(ctx, cached); err == nil {
			return cached, false, nil
		}
		u.log.Info("cached upload stale, re-uploading", "url", url)
	}

	local, err := u.paths.FromURL(url, st)
	if err != nil {
		return "", false, err
	}
	external, err := u.fal.UploadFile(ctx, local)
	if err != nil {
		return "", false, err
	}
	if st.Project.FalUploadCache == nil {
		st.Project.FalUploadCache = map[string]string{}
	}
	st.Project.FalUploadCache[url] = external
	return external, true, nil
}
