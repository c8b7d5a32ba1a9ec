package upload

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/heicbridge/service/internal/convert"
	"github.com/heicbridge/service/internal/storage"
)

const rollbackTimeout = 30 * time.Second

// Converter transcodes HEIC/HEIF bytes to JPEG.
type Converter interface {
	Convert(src []byte) ([]byte, error)
}

// FileReader returns the bytes of a file saved in the scratch area.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// Service runs each file through conversion and storage.
type Service struct {
	store storage.Storage
	conv  Converter
	log   logrus.FieldLogger
	newID func() string
}

// NewService creates a new upload Service.
func NewService(store storage.Storage, conv Converter, log logrus.FieldLogger) *Service {
	return &Service{
		store: store,
		conv:  conv,
		log:   log,
		newID: uuid.NewString,
	}
}

// Process handles files strictly in order and returns one stored object per
// file. The first failure stops processing; objects already written by this
// call are then deleted best-effort and the failure is returned.
func (s *Service) Process(ctx context.Context, src FileReader, files []IncomingFile) ([]StoredObject, error) {
	stored := make([]StoredObject, 0, len(files))
	for _, f := range files {
		obj, written, err := s.processOne(ctx, src, f)
		if written {
			stored = append(stored, obj)
		}
		if err != nil {
			s.rollback(ctx, stored)
			return nil, err
		}
	}
	return stored, nil
}

// processOne reports written=true once the object exists in storage, even
// if resolving its URL failed afterwards.
func (s *Service) processOne(ctx context.Context, src FileReader, f IncomingFile) (StoredObject, bool, error) {
	dest, err := ParseFieldKey(f.FieldKey)
	if err != nil {
		return StoredObject{}, false, err
	}

	data, err := src.ReadFile(f.Path)
	if err != nil {
		return StoredObject{}, false, fmt.Errorf("read %q: %w", f.Name, err)
	}

	payload, err := s.prepare(f, data)
	if err != nil {
		return StoredObject{}, false, err
	}

	obj := StoredObject{Bucket: dest.Bucket, Key: dest.Prefix + "/" + s.newID()}
	log := s.log.WithFields(logrus.Fields{
		"file":   f.Name,
		"bucket": obj.Bucket,
		"key":    obj.Key,
	})

	err = s.store.Put(ctx, obj.Bucket, obj.Key, bytes.NewReader(payload.Data), int64(len(payload.Data)), payload.ContentType)
	if err != nil {
		return StoredObject{}, false, err
	}

	obj.URL, err = s.store.PublicURL(obj.Bucket, obj.Key)
	if err != nil {
		return obj, true, err
	}

	log.WithFields(logrus.Fields{
		"converted":    payload.Converted,
		"content_type": payload.ContentType,
		"bytes":        len(payload.Data),
	}).Info("stored file")
	return obj, true, nil
}

func (s *Service) prepare(f IncomingFile, data []byte) (Payload, error) {
	if !convert.IsHEIC(f.Name) {
		return Payload{Data: data, ContentType: convert.DetectContentType(f.MimeType, data)}, nil
	}
	out, err := s.conv.Convert(data)
	if err != nil {
		return Payload{}, fmt.Errorf("convert %q: %w", f.Name, err)
	}
	return Payload{Data: out, ContentType: convert.JPEGContentType, Converted: true}, nil
}

// rollback deletes objects written earlier in a failed request. Failures
// are logged; the original error is what the caller sees.
func (s *Service) rollback(ctx context.Context, stored []StoredObject) {
	if len(stored) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	for _, obj := range stored {
		log := s.log.WithFields(logrus.Fields{"bucket": obj.Bucket, "key": obj.Key})
		if err := s.store.Delete(ctx, obj.Bucket, obj.Key); err != nil {
			log.WithError(err).Warn("rollback: could not delete stored object")
			continue
		}
		log.Info("rollback: deleted stored object")
	}
}
