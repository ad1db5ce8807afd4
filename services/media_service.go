package services

import (
	"context"
	"log"
	"time"

	"carechat_server/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// MediaService turns raw uploads into attachment descriptors via presigned
// S3 URLs. The chat core never performs the upload itself: the client PUTs
// to the presigned URL and attaches the returned descriptor to the message.
type MediaService struct {
	Bucket    string
	Presigner *s3.PresignClient
}

// NewMediaService builds the S3-backed media adapter.
func NewMediaService(region, bucket string) *MediaService {
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(), awsconfig.WithRegion(region))
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	client := s3.NewFromConfig(cfg)
	return &MediaService{
		Bucket:    bucket,
		Presigner: s3.NewPresignClient(client),
	}
}

// UploadTicket is what the client needs to perform an upload: a presigned
// PUT URL plus the descriptor to attach to the message afterwards.
type UploadTicket struct {
	UploadURL string          `json:"uploadUrl"`
	File      models.FileInfo `json:"file"`
}

// CreateUploadURL generates a presigned URL for uploading an attachment.
func (ms *MediaService) CreateUploadURL(ctx context.Context, fileName, mimeType string, sizeBytes int64) (*UploadTicket, error) {
	key := "chat-attachments/" + time.Now().UTC().Format("20060102150405") + "-" + fileName

	params := &s3.PutObjectInput{
		Bucket:      aws.String(ms.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(mimeType),
	}
	presigned, err := ms.Presigner.PresignPutObject(ctx, params, s3.WithPresignExpires(5*time.Minute))
	if err != nil {
		return nil, err
	}

	readURL, err := ms.CreateReadURL(ctx, key)
	if err != nil {
		return nil, err
	}

	return &UploadTicket{
		UploadURL: presigned.URL,
		File: models.FileInfo{
			URL:       readURL,
			Name:      fileName,
			SizeBytes: sizeBytes,
			MimeType:  mimeType,
		},
	}, nil
}

// CreateReadURL generates a presigned URL for reading a stored attachment.
func (ms *MediaService) CreateReadURL(ctx context.Context, key string) (string, error) {
	params := &s3.GetObjectInput{
		Bucket: aws.String(ms.Bucket),
		Key:    aws.String(key),
	}
	presigned, err := ms.Presigner.PresignGetObject(ctx, params, s3.WithPresignExpires(24*time.Hour))
	if err != nil {
		return "", err
	}
	return presigned.URL, nil
}
