package export

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fogleman/gg"

	apperr "github.com/BXLSTNRD/FrePathe/internal/pkg/errors"
	"github.com/BXLSTNRD/FrePathe/internal/utils"
)

const (
	sheetColumns = 4
	sheetCellW   = 320
	sheetCellH   = 180
	sheetPadding = 12
	sheetLabelH  = 22
	sheetHeaderH = 48
)

// ContactSheet renders a grid of shot stills into a single PNG for quick
// review, labeled with shot ids and timings.
func (e *exporter) ContactSheet(ctx context.Context, projectID string) (string, error) {
	st, err := e.store.Load(projectID)
	if err != nil {
		return "", err
	}
	shots := renderedShots(st)
	if len(shots) == 0 {
		return "", fmt.Errorf("no rendered shots: %w", apperr.ErrInvalidArgument)
	}

	rows := (len(shots) + sheetColumns - 1) / sheetColumns
	width := sheetColumns*(sheetCellW+sheetPadding) + sheetPadding
	height := sheetHeaderH + rows*(sheetCellH+sheetLabelH+sheetPadding) + sheetPadding

	dc := gg.NewContext(width, height)
	dc.SetRGB(0.08, 0.08, 0.1)
	dc.Clear()

	dc.SetRGB(0.95, 0.95, 0.95)
	dc.DrawStringAnchored(st.Project.Title, float64(sheetPadding), sheetHeaderH/2, 0, 0.35)

	for i, shot := range shots {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		col := i % sheetColumns
		row := i / sheetColumns
		x := float64(sheetPadding + col*(sheetCellW+sheetPadding))
		y := float64(sheetHeaderH + row*(sheetCellH+sheetLabelH+sheetPadding))

		imgPath, err := e.paths.FromURL(shot.Render.ImageURL, st)
		if err == nil {
			if img, err := gg.LoadImage(imgPath); err == nil {
				b := img.Bounds()
				sx := float64(sheetCellW) / float64(b.Dx())
				sy := float64(sheetCellH) / float64(b.Dy())
				scale := sx
				if sy < sx {
					scale = sy
				}
				dc.Push()
				dc.Translate(x, y)
				dc.Scale(scale, scale)
				dc.DrawImage(img, 0, 0)
				dc.Pop()
			}
		} else {
			dc.SetRGB(0.2, 0.2, 0.22)
			dc.DrawRectangle(x, y, sheetCellW, sheetCellH)
			dc.Fill()
		}

		label := fmt.Sprintf("%s  %.1f-%.1fs", shot.ShotID, shot.Start, shot.End)
		dc.SetRGB(0.85, 0.85, 0.85)
		dc.DrawStringAnchored(label, x, y+sheetCellH+sheetLabelH/2, 0, 0.35)
	}

	exportsDir, err := e.paths.ExportsDir(st)
	if err != nil {
		return "", err
	}
	out := filepath.Join(exportsDir, utils.SanitizeFilename(st.Project.Title, 60)+"_sheet.png")
	if err := dc.SavePNG(out); err != nil {
		return "", fmt.Errorf("save contact sheet: %w", err)
	}
	return e.paths.ToURL(out)
}
