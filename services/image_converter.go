package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// ImageConverter turns an uploaded file into the processed image served to
// clients. dst is always a .jpg path.
type ImageConverter interface {
	Convert(ctx context.Context, src, dst string) error
}

// CommandConverter runs an external tool. The template's {in} and {out}
// placeholders are replaced by the source and destination paths, e.g.
// "convert {in} -resize 1080x1080> {out}".
type CommandConverter struct {
	args []string
}

func NewCommandConverter(template string) (*CommandConverter, error) {
	args := strings.Fields(template)
	if len(args) == 0 {
		return nil, fmt.Errorf("empty image convert command")
	}
	return &CommandConverter{args: args}, nil
}

func (c *CommandConverter) Convert(ctx context.Context, src, dst string) error {
	args := make([]string, len(c.args))
	for i, arg := range c.args {
		arg = strings.ReplaceAll(arg, "{in}", src)
		args[i] = strings.ReplaceAll(arg, "{out}", dst)
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("image conversion failed: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// MoveConverter keeps the upload as is.
type MoveConverter struct{}

func (MoveConverter) Convert(_ context.Context, src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	// Rename fails across filesystems; fall back to a copy.
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("failed to copy image: %w", err)
	}
	return out.Close()
}
