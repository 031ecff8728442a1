package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/BXLSTNRD/FrePathe/internal/audio"
	"github.com/BXLSTNRD/FrePathe/internal/clients"
	"github.com/BXLSTNRD/FrePathe/internal/domain"
	"github.com/BXLSTNRD/FrePathe/internal/paths"
	apperr "github.com/BXLSTNRD/FrePathe/internal/pkg/errors"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
	"github.com/BXLSTNRD/FrePathe/internal/state"
	"github.com/BXLSTNRD/FrePathe/internal/utils"
)

type AudioHandler struct {
	log      *logger.Logger
	store    state.StateStore
	paths    paths.PathManager
	fal      clients.FALClient
	analyzer audio.AudioAnalyzer
}

func NewAudioHandler(log *logger.Logger, store state.StateStore, pm paths.PathManager, fal clients.FALClient, analyzer audio.AudioAnalyzer) *AudioHandler {
	return &AudioHandler{
		log:      log.With("handler", "AudioHandler"),
		store:    store,
		paths:    pm,
		fal:      fal,
		analyzer: analyzer,
	}
}

// POST /api/project/:project_id/audio
// Multipart upload; stores the track, uploads it for analysis and writes the
// resulting audio profile into the project state.
func (h *AudioHandler) Upload(c *gin.Context) {
	projectID := c.Param("project_id")
	file, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body",
			fmt.Errorf("audio file required: %w", apperr.ErrInvalidArgument))
		return
	}
	prompt := c.PostForm("prompt")

	var result *domain.State
	err = h.store.WithProjectLock(projectID, func() error {
		st, err := h.store.Load(projectID)
		if err != nil {
			return err
		}
		audioDir, err := h.paths.AudioDir(st)
		if err != nil {
			return err
		}
		localPath := filepath.Join(audioDir, utils.SanitizeFilename(file.Filename, 80))
		if err := saveUpload(file, localPath); err != nil {
			return fmt.Errorf("save audio file: %w", err)
		}

		remoteURL, err := h.fal.UploadFile(c.Request.Context(), localPath)
		if err != nil {
			return fmt.Errorf("upload audio: %w", err)
		}

		dna, err := h.analyzer.Analyze(c.Request.Context(), st, localPath, remoteURL, prompt)
		if err != nil {
			return err
		}
		st.AudioDNA = dna
		if url, err := h.paths.ToURL(localPath); err == nil {
			st.AudioFile = url
		}
		if err := h.store.Save(st, true, false); err != nil {
			return err
		}
		result = st
		return nil
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"audio_dna": result.AudioDNA, "audio_file_path": result.AudioFile})
}

// PATCH /api/project/:project_id/audio/bpm
func (h *AudioHandler) PatchBPM(c *gin.Context) {
	projectID := c.Param("project_id")
	var req struct {
		BPM int `json:"bpm"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	var dna *domain.AudioDNA
	err := h.store.WithProjectLock(projectID, func() error {
		st, err := h.store.Load(projectID)
		if err != nil {
			return err
		}
		if err := h.analyzer.UpdateBPM(st, req.BPM); err != nil {
			return err
		}
		if err := h.store.Save(st, true, false); err != nil {
			return err
		}
		dna = st.AudioDNA
		return nil
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"bpm": dna.Meta.BPM, "bpm_source": dna.Meta.BPMSource, "beat_grid": dna.BeatGrid})
}

// PATCH /api/project/:project_id/audio/lyrics
func (h *AudioHandler) PatchLyrics(c *gin.Context) {
	projectID := c.Param("project_id")
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	var dna *domain.AudioDNA
	err := h.store.WithProjectLock(projectID, func() error {
		st, err := h.store.Load(projectID)
		if err != nil {
			return err
		}
		if err := h.analyzer.UpdateLyrics(st, req.Text); err != nil {
			return err
		}
		if err := h.store.Save(st, true, false); err != nil {
			return err
		}
		dna = st.AudioDNA
		return nil
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"lyrics": dna.Lyrics, "lyrics_source": dna.LyricsSource})
}

func saveUpload(file *multipart.FileHeader, dst string) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, src)
	return err
}
