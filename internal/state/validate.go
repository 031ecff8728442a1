package state

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BXLSTNRD/FrePathe/internal/domain"
	apperr "github.com/BXLSTNRD/FrePathe/internal/pkg/errors"
)

// coverageTolerance is the largest gap or overlap, in seconds, allowed
// between adjacent shots of a sequence.
const coverageTolerance = 0.1

// Validate checks the structural invariants of a state document. With strict
// set, any issue is returned as an error; otherwise issues are reported for
// the caller to log.
func (s *stateStore) Validate(st *domain.State, strict bool) (bool, []string, error) {
	if st == nil {
		return false, nil, fmt.Errorf("nil state: %w", apperr.ErrInvalidArgument)
	}
	var issues []string
	addf := func(format string, args ...any) {
		issues = append(issues, fmt.Sprintf(format, args...))
	}

	validCast := st.ValidCastIDs()
	sequenceIDs := map[string]*domain.Sequence{}

	var duration float64
	if st.AudioDNA != nil {
		duration = st.AudioDNA.Meta.DurationSec
	}

	for i := range st.Storyboard.Sequences {
		seq := &st.Storyboard.Sequences[i]
		sequenceIDs[seq.SequenceID] = seq
		if seq.Start < 0 || seq.End <= seq.Start {
			addf("sequence %s has invalid time range [%.2f, %.2f]", seq.SequenceID, seq.Start, seq.End)
		}
		if duration > 0 && seq.End > duration+coverageTolerance {
			addf("sequence %s ends at %.2f past audio duration %.2f", seq.SequenceID, seq.End, duration)
		}
		if seq.Energy < 0 || seq.Energy > 1 {
			addf("sequence %s energy %.2f outside [0,1]", seq.SequenceID, seq.Energy)
		}
		if seq.StructureType != "" && !seq.StructureType.Valid() {
			addf("sequence %s has unknown structure type %q", seq.SequenceID, seq.StructureType)
		}
		for _, id := range seq.Cast {
			if !validCast[id] {
				addf("sequence %s references unknown cast %q", seq.SequenceID, id)
			}
		}
	}

	for i := range st.Storyboard.Shots {
		shot := &st.Storyboard.Shots[i]
		if _, ok := sequenceIDs[shot.SequenceID]; !ok {
			addf("shot %s references unknown sequence %q", shot.ShotID, shot.SequenceID)
		}
		if shot.Energy < 0 || shot.Energy > 1 {
			addf("shot %s energy %.2f outside [0,1]", shot.ShotID, shot.Energy)
		}
		if shot.StructureType != "" && !shot.StructureType.Valid() {
			addf("shot %s has unknown structure type %q", shot.ShotID, shot.StructureType)
		}
		for _, id := range shot.Cast {
			if !validCast[id] {
				addf("shot %s references unknown cast %q", shot.ShotID, id)
			}
		}
		if shot.Render.Status == domain.RenderDone {
			if shot.Render.ImageURL == "" {
				addf("shot %s is done but has no image", shot.ShotID)
			} else if !strings.HasPrefix(shot.Render.ImageURL, "http") {
				if _, err := s.paths.FromURL(shot.Render.ImageURL, st); err != nil {
					addf("shot %s image %q does not resolve to a file", shot.ShotID, shot.Render.ImageURL)
				}
			}
		}
	}

	// Shots of each sequence must tile its span with no gap or overlap.
	for id, seq := range sequenceIDs {
		shots := st.Storyboard.ShotsForSequence(id)
		if len(shots) == 0 {
			continue
		}
		prevEnd := seq.Start
		for _, shot := range shots {
			delta := shot.Start - prevEnd
			if delta > coverageTolerance {
				addf("sequence %s has a %.2fs gap before shot %s", id, delta, shot.ShotID)
			} else if delta < -coverageTolerance {
				addf("sequence %s shot %s overlaps previous by %.2fs", id, shot.ShotID, -delta)
			}
			prevEnd = shot.End
		}
		if seq.End-prevEnd > coverageTolerance {
			addf("sequence %s shots stop %.2fs before sequence end", id, seq.End-prevEnd)
		}
	}

	if img := st.Project.StyleLockImage; img != "" && !strings.HasPrefix(img, "http") {
		abs, err := s.paths.FromURL(img, st)
		if err != nil {
			addf("style lock image %q does not resolve to a file", img)
		} else if folder, fErr := s.paths.ProjectFolder(st); fErr == nil {
			if rel, rErr := filepath.Rel(folder, abs); rErr != nil || strings.HasPrefix(rel, "..") {
				addf("style lock image %q is outside the project folder", img)
			}
		}
	}

	ok := len(issues) == 0
	if !ok && strict {
		return false, issues, fmt.Errorf("state validation failed (%d issues, first: %s): %w",
			len(issues), issues[0], apperr.ErrInvalidArgument)
	}
	return ok, issues, nil
}
