package narrate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
)

// CommandPlayer pipes audio to an external program's stdin, e.g.
// "mpv --no-video -" or "ffplay -nodisp -autoexit -".
type CommandPlayer struct {
	name string
	args []string
}

// NewCommandPlayer parses a whitespace-separated command line.
func NewCommandPlayer(command string) (*CommandPlayer, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errors.New("player command is empty")
	}
	return &CommandPlayer{name: fields[0], args: fields[1:]}, nil
}

// Play runs the command to completion. Cancelling ctx kills it.
func (p *CommandPlayer) Play(ctx context.Context, audio io.Reader) error {
	cmd := exec.CommandContext(ctx, p.name, p.args...)
	cmd.Stdin = audio

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", p.name, err, msg)
		}
		return fmt.Errorf("%s: %w", p.name, err)
	}
	return nil
}

// FilePlayer saves each clip as an MP3 file in a directory for a client or
// operator to pick up.
type FilePlayer struct {
	dir string
}

// NewFilePlayer creates the directory if needed.
func NewFilePlayer(dir string) (*FilePlayer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create audio directory: %w", err)
	}
	return &FilePlayer{dir: dir}, nil
}

// Play writes the clip to <dir>/<ulid>.mp3.
func (p *FilePlayer) Play(ctx context.Context, audio io.Reader) error {
	path := filepath.Join(p.dir, ulid.Make().String()+".mp3")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}

	if _, err := io.Copy(f, audio); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close audio file: %w", err)
	}

	slog.Info("narration saved",
		"component", "narrate",
		"path", path,
	)
	return nil
}
