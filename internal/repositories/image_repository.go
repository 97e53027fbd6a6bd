package repositories

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrImageNotFound is returned when no stored file matches the reference
var ErrImageNotFound = errors.New("image not found")

// StoredImage is a downloaded image with the metadata it was uploaded with
type StoredImage struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ImageRepository stores item images by reference
type ImageRepository interface {
	UploadImage(ctx context.Context, filename, contentType string, r io.Reader) (string, error)
	DownloadImage(ctx context.Context, ref string) (*StoredImage, error)
	DeleteImage(ctx context.Context, ref string) error
}

// MongoImageRepository implements ImageRepository with a GridFS bucket
type MongoImageRepository struct {
	bucket *gridfs.Bucket
}

// NewMongoImageRepository creates a GridFS-backed image repository in the "items" bucket
func NewMongoImageRepository(db *mongo.Database) (*MongoImageRepository, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName("items"))
	if err != nil {
		return nil, fmt.Errorf("failed to open gridfs bucket: %w", err)
	}
	return &MongoImageRepository{bucket: bucket}, nil
}

// UploadImage streams r into GridFS and returns the file id as hex
func (r *MongoImageRepository) UploadImage(ctx context.Context, filename, contentType string, src io.Reader) (string, error) {
	opts := options.GridFSUpload().SetMetadata(bson.M{"content_type": contentType})
	stream, err := r.bucket.OpenUploadStream(filename, opts)
	if err != nil {
		return "", err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := stream.SetWriteDeadline(deadline); err != nil {
			return "", err
		}
	}

	if _, err := io.Copy(stream, src); err != nil {
		_ = stream.Abort()
		return "", err
	}
	if err := stream.Close(); err != nil {
		return "", err
	}

	id, ok := stream.FileID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected gridfs file id type %T", stream.FileID)
	}
	return id.Hex(), nil
}

func (r *MongoImageRepository) DownloadImage(ctx context.Context, ref string) (*StoredImage, error) {
	objID, err := primitive.ObjectIDFromHex(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid image reference %q: %w", ref, ErrImageNotFound)
	}

	stream, err := r.bucket.OpenDownloadStream(objID)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	defer stream.Close()
	if deadline, ok := ctx.Deadline(); ok {
		if err := stream.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
	}

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, err
	}

	img := &StoredImage{Data: data, ContentType: "application/octet-stream"}
	if file := stream.GetFile(); file != nil {
		img.Filename = file.Name
		var meta struct {
			ContentType string `bson:"content_type"`
		}
		if file.Metadata != nil && bson.Unmarshal(file.Metadata, &meta) == nil && meta.ContentType != "" {
			img.ContentType = meta.ContentType
		}
	}
	return img, nil
}

func (r *MongoImageRepository) DeleteImage(ctx context.Context, ref string) error {
	objID, err := primitive.ObjectIDFromHex(ref)
	if err != nil {
		return fmt.Errorf("invalid image reference %q: %w", ref, ErrImageNotFound)
	}
	if err := r.bucket.DeleteContext(ctx, objID); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return ErrImageNotFound
		}
		return err
	}
	return nil
}
