package filestore

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/igolaizola/aimusic/pkg/filestore/local"
	"github.com/igolaizola/aimusic/pkg/filestore/s3"
	"github.com/igolaizola/aimusic/pkg/filestore/tgstore"
	"github.com/igolaizola/aimusic/pkg/storage"
)

type fs interface {
	Upload(ctx context.Context, path, name string) error
	Download(ctx context.Context, path, name string) error
}

// Store persists generated artifacts (audio, video, covers) in a
// configurable backend.
type Store struct {
	fs fs
}

func (s *Store) SetMP3(ctx context.Context, path, id string) error {
	return s.fs.Upload(ctx, path, MP3(id))
}

func (s *Store) GetMP3(ctx context.Context, path, id string) error {
	return s.fs.Download(ctx, path, MP3(id))
}

func (s *Store) SetWAV(ctx context.Context, path, id string) error {
	return s.fs.Upload(ctx, path, WAV(id))
}

func (s *Store) GetWAV(ctx context.Context, path, id string) error {
	return s.fs.Download(ctx, path, WAV(id))
}

func (s *Store) SetMP4(ctx context.Context, path, id string) error {
	return s.fs.Upload(ctx, path, MP4(id))
}

func (s *Store) GetMP4(ctx context.Context, path, id string) error {
	return s.fs.Download(ctx, path, MP4(id))
}

func (s *Store) SetJPG(ctx context.Context, path, id string) error {
	return s.fs.Upload(ctx, path, JPG(id))
}

func (s *Store) GetJPG(ctx context.Context, path, id string) error {
	return s.fs.Download(ctx, path, JPG(id))
}

func (s *Store) SetMIDI(ctx context.Context, path, id string) error {
	return s.fs.Upload(ctx, path, MIDI(id))
}

func (s *Store) GetMIDI(ctx context.Context, path, id string) error {
	return s.fs.Download(ctx, path, MIDI(id))
}

// New creates a file store. Supported types are "local" with a root
// directory, "s3" with a "key:secret@bucket.region" connection string
// and "telegram" with a "token@chat" connection string.
func New(typ, conn, proxy string, debug bool, store *storage.Store) (*Store, error) {
	var fs fs
	switch typ {
	case "telegram":
		split := strings.Split(conn, "@")
		if len(split) != 2 {
			return nil, fmt.Errorf("filestore: invalid telegram connection string %q", conn)
		}
		token := split[0]
		chat, err := strconv.ParseInt(split[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("filestore: invalid telegram chat id %q: %w", split[1], err)
		}
		candidate, err := tgstore.New(token, chat, proxy, debug, store)
		if err != nil {
			return nil, fmt.Errorf("filestore: %w", err)
		}
		fs = candidate
	case "s3":
		split := strings.Split(conn, "@")
		if len(split) != 2 {
			return nil, fmt.Errorf("filestore: invalid s3 connection string %q", conn)
		}
		auth := strings.Split(split[0], ":")
		if len(auth) != 2 {
			return nil, fmt.Errorf("filestore: invalid s3 auth string %q", conn)
		}
		key := auth[0]
		secret := auth[1]
		loc := strings.Split(split[1], ".")
		if len(loc) != 2 {
			return nil, fmt.Errorf("filestore: invalid s3 location string %q", conn)
		}
		bucket := loc[0]
		region := loc[1]
		candidate, err := s3.New(key, secret, region, bucket, debug)
		if err != nil {
			return nil, fmt.Errorf("filestore: %w", err)
		}
		fs = candidate
	case "local":
		fs = local.New(conn, debug)
	default:
		return nil, fmt.Errorf("filestore: unknown file storage type %q", typ)
	}
	return &Store{fs: fs}, nil
}

func MP3(id string) string {
	return id + ".mp3"
}

func WAV(id string) string {
	return id + ".wav"
}

func MP4(id string) string {
	return id + ".mp4"
}

func JPG(id string) string {
	return id + ".jpg"
}

func MIDI(id string) string {
	return id + ".mid"
}
