// Package arflow exports a scan session into the flat directory layout
// consumed by ARFlow-style tooling: numbered raw depth grids with PNG
// thumbnails, plain-text camera poses, the inertial log as CSV, and the
// camera intrinsics.
package arflow

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"golang.org/x/image/draw"

	"github.com/viam-labs/roboclip/depth"
	"github.com/viam-labs/roboclip/session"
)

const (
	depthDirName  = "depth"
	poseDirName   = "camera_poses"
	imuDirName    = "imu"
	framesDirName = "frames"

	// previewWidth is the fixed thumbnail width; height keeps the aspect.
	previewWidth = 256
)

// Result counts what one export produced.
type Result struct {
	DepthFrames int
	Previews    int
	Poses       int
	VideoFrames int
}

// Export writes the session's streams under outDir. Missing streams are
// skipped with a log line; only filesystem failures abort the export.
func Export(ctx context.Context, s *session.Session, outDir string, logger golog.Logger) (*Result, error) {
	for _, sub := range []string{depthDirName, poseDirName, imuDirName, framesDirName} {
		if err := os.MkdirAll(filepath.Join(outDir, sub), 0o755); err != nil {
			return nil, errors.Wrap(err, "cannot create export directory")
		}
	}

	result := &Result{}
	if err := exportDepth(ctx, s, outDir, result, logger); err != nil {
		return nil, err
	}
	if err := exportPoses(ctx, s, outDir, result, logger); err != nil {
		return nil, err
	}
	if err := exportIMU(s, outDir, logger); err != nil {
		return nil, err
	}
	if err := exportIntrinsics(s, outDir, logger); err != nil {
		return nil, err
	}
	if err := exportMeta(s, outDir); err != nil {
		return nil, err
	}
	if err := mirrorFrames(ctx, s, outDir, result, logger); err != nil {
		return nil, err
	}

	logger.Infow("export complete",
		"session", s.ID,
		"out", outDir,
		"depth_frames", result.DepthFrames,
		"poses", result.Poses,
		"video_frames", result.VideoFrames,
	)
	return result, nil
}

// exportDepth renumbers the session's depth captures into %06d.raw files.
// With known dimensions each grid also gets a thumbnail; without them the
// bytes are passed through untouched.
func exportDepth(ctx context.Context, s *session.Session, outDir string, result *Result, logger golog.Logger) error {
	if !s.HasDepth() {
		logger.Debugw("session has no depth frames to export", "session", s.ID)
		return nil
	}
	width, height := 0, 0
	if s.Meta != nil {
		width, height = s.Meta.DepthWidth, s.Meta.DepthHeight
	}
	if width <= 0 || height <= 0 {
		logger.Warnw("depth dimensions unknown, exporting raw bytes without previews",
			"session", s.ID)
	}

	for i := 0; i < s.DepthRefs.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		ref := s.DepthRefs.At(i).Value
		outPath := filepath.Join(outDir, depthDirName, fmt.Sprintf("%06d.raw", i))

		if width <= 0 || height <= 0 {
			if err := copyFile(ref.Path, outPath); err != nil {
				return errors.Wrapf(err, "exporting depth frame %d", i)
			}
			result.DepthFrames++
			continue
		}

		frame, err := depth.ReadFrameFile(ref.Path, width, height)
		if err != nil {
			logger.Warnw("skipping unreadable depth frame",
				"session", s.ID, "path", ref.Path, "error", err)
			continue
		}
		if err := frame.WriteRawFile(outPath); err != nil {
			return errors.Wrapf(err, "exporting depth frame %d", i)
		}
		result.DepthFrames++

		previewPath := filepath.Join(outDir, depthDirName, fmt.Sprintf("%06d.png", i))
		if err := writeThumbnail(previewPath, frame.ToPrettyPicture(0, 0)); err != nil {
			return errors.Wrapf(err, "writing depth preview %d", i)
		}
		result.Previews++
	}
	return nil
}

// exportPoses writes each recorded pose as four space-separated matrix rows.
// Synthesized identity placeholders are not a trajectory and stay home.
func exportPoses(ctx context.Context, s *session.Session, outDir string, result *Result, logger golog.Logger) error {
	if s.Poses.Len() == 0 {
		logger.Debugw("session has no poses to export", "session", s.ID)
		return nil
	}
	if s.PosesSynthesized {
		logger.Infow("skipping pose export, poses are synthesized placeholders", "session", s.ID)
		return nil
	}
	for i := 0; i < s.Poses.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows := s.Poses.At(i).Value.Rows()
		path := filepath.Join(outDir, poseDirName, fmt.Sprintf("%06d.txt", i))
		if err := writePoseText(path, rows); err != nil {
			return errors.Wrapf(err, "exporting pose %d", i)
		}
		result.Poses++
	}
	return nil
}

func writePoseText(path string, rows [4][4]float64) (err error) {
	//nolint:gosec
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, out.Close())
	}()
	for _, row := range rows {
		if _, err := fmt.Fprintf(out, "%.18e %.18e %.18e %.18e\n",
			row[0], row[1], row[2], row[3]); err != nil {
			return err
		}
	}
	return nil
}

func exportIMU(s *session.Session, outDir string, logger golog.Logger) error {
	if s.IMUPath == "" {
		logger.Debugw("session has no inertial log to export", "session", s.ID)
		return nil
	}
	dst := filepath.Join(outDir, imuDirName, "imu.csv")
	if err := copyFile(s.IMUPath, dst); err != nil {
		return errors.Wrap(err, "exporting inertial log")
	}
	return nil
}

func exportIntrinsics(s *session.Session, outDir string, logger golog.Logger) error {
	if s.Meta == nil {
		logger.Debugw("session has no meta, skipping intrinsics export", "session", s.ID)
		return nil
	}
	params, err := s.Meta.CameraIntrinsics(0, 0)
	if err != nil {
		logger.Warnw("cannot derive intrinsics, skipping export", "session", s.ID, "error", err)
		return nil
	}
	line := fmt.Sprintf("%g %g %g %g\n", params.Fx, params.Fy, params.Ppx, params.Ppy)
	path := filepath.Join(outDir, "intrinsics.txt")
	if err := os.WriteFile(path, []byte(line), 0o644); err != nil {
		return errors.Wrap(err, "exporting intrinsics")
	}
	return nil
}

func exportMeta(s *session.Session, outDir string) error {
	src := filepath.Join(s.Dir, "meta.json")
	if _, err := os.Stat(src); err != nil {
		return nil
	}
	if err := copyFile(src, filepath.Join(outDir, "meta.json")); err != nil {
		return errors.Wrap(err, "exporting meta")
	}
	return nil
}

// mirrorFrames copies through already-decoded video frames. Decoding
// video.mov itself is a separate tool's job; without a frames directory the
// export just notes the gap.
func mirrorFrames(ctx context.Context, s *session.Session, outDir string, result *Result, logger golog.Logger) error {
	srcDir := filepath.Join(s.Dir, framesDirName)
	info, err := os.Stat(srcDir)
	if err != nil || !info.IsDir() {
		logger.Infow("no decoded video frames to export, skipping", "session", s.ID)
		return nil
	}
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return errors.Wrap(err, "reading decoded frames")
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			continue
		}
		src := filepath.Join(srcDir, entry.Name())
		dst := filepath.Join(outDir, framesDirName, entry.Name())
		if err := copyFile(src, dst); err != nil {
			return errors.Wrapf(err, "exporting video frame %s", entry.Name())
		}
		result.VideoFrames++
	}
	return nil
}

func writeThumbnail(path string, src image.Image) (err error) {
	bounds := src.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return errors.New("cannot thumbnail an empty image")
	}
	scale := float64(previewWidth) / float64(bounds.Dx())
	height := int(math.Round(float64(bounds.Dy()) * scale))
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, previewWidth, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	//nolint:gosec
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, out.Close())
	}()
	return png.Encode(out, dst)
}

func copyFile(src, dst string) (err error) {
	//nolint:gosec
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(in.Close)
	//nolint:gosec
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, out.Close())
	}()
	_, err = io.Copy(out, in)
	return err
}
