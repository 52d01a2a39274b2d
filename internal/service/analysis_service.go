package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/BoweryJG/mUiLinguistics/internal/model"
	"github.com/BoweryJG/mUiLinguistics/internal/pubsub"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ErrFileTooLarge is returned when the audio file exceeds the user's
// per-file size limit.
var ErrFileTooLarge = errors.New("file_too_large")

// requestTypeAnalysis tags ledger entries written for audio analysis requests.
const requestTypeAnalysis = "audio_analysis"

// AnalysisRequestOutcome is what the client needs to proceed with an admitted
// analysis: where to upload the audio, plus the usage standing either way.
type AnalysisRequestOutcome struct {
	Result      *model.AdmissionResult
	UploadURL   string
	StoragePath string
}

// AnalysisService admits analysis requests against the user's quota and, for
// admitted ones, hands out a presigned upload URL and dispatches the
// processing job.
type AnalysisService interface {
	RequestAnalysis(ctx context.Context, userID, filename string, fileSize int64) (*AnalysisRequestOutcome, error)
}

type analysisService struct {
	usageSvc      UsageService
	presignClient *s3.PresignClient
	bucketName    string
	publisher     pubsub.Publisher
	analysisTopic string
	logger        zerolog.Logger
}

// NewAnalysisService creates a new AnalysisService.
func NewAnalysisService(
	usageSvc UsageService,
	s3Client *s3.Client,
	bucketName string,
	publisher pubsub.Publisher,
	analysisTopic string,
	logger zerolog.Logger,
) AnalysisService {
	return &analysisService{
		usageSvc:      usageSvc,
		presignClient: s3.NewPresignClient(s3Client),
		bucketName:    bucketName,
		publisher:     publisher,
		analysisTopic: analysisTopic,
		logger:        logger.With().Str("service", "AnalysisService").Logger(),
	}
}

// analysisJob is the message published for each admitted request.
type analysisJob struct {
	UserID      string    `json:"user_id"`
	StoragePath string    `json:"storage_path"`
	Filename    string    `json:"filename"`
	FileSize    int64     `json:"file_size"`
	RequestedAt time.Time `json:"requested_at"`
}

func (s *analysisService) RequestAnalysis(ctx context.Context, userID, filename string, fileSize int64) (*AnalysisRequestOutcome, error) {
	// Size is checked against the entitlement before admission so an
	// oversized file does not burn quota.
	limits, err := s.usageSvc.Limits(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch limits for analysis request")
		return nil, fmt.Errorf("fetch limits: %w", err)
	}
	if fileSize > limits.MaxFileSize {
		return nil, ErrFileTooLarge
	}

	result, err := s.usageSvc.Admit(ctx, userID, requestTypeAnalysis, fileSize)
	if err != nil {
		return nil, err
	}
	if !result.Admitted {
		return &AnalysisRequestOutcome{Result: result}, nil
	}

	storagePath := fmt.Sprintf("%s/%d_%s", userID, time.Now().UnixNano(), filename)
	uploadURL, err := s.getPresignedPutURL(ctx, storagePath)
	if err != nil {
		// Admission is already recorded; the quota check is not retried. The
		// request is dropped as failed.
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to generate presigned upload URL")
		return nil, err
	}

	job := analysisJob{
		UserID:      userID,
		StoragePath: storagePath,
		Filename:    filename,
		FileSize:    fileSize,
		RequestedAt: time.Now(),
	}
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis job: %w", err)
	}
	if _, err := s.publisher.Publish(ctx, s.analysisTopic, data); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("storage_path", storagePath).Msg("Failed to publish analysis job")
		return nil, err
	}

	s.logger.Info().Str("user_id", userID).Str("storage_path", storagePath).Int("usage", result.Usage.Current).Msg("Analysis request admitted")
	return &AnalysisRequestOutcome{
		Result:      result,
		UploadURL:   uploadURL,
		StoragePath: storagePath,
	}, nil
}

// getPresignedPutURL generates a presigned URL for uploading the audio file.
func (s *analysisService) getPresignedPutURL(ctx context.Context, objectKey string) (string, error) {
	request, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned PUT URL: %w", err)
	}
	return request.URL, nil
}
