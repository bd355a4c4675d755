package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/glevi2004/organically-sub001/internal/models"
	"github.com/glevi2004/organically-sub001/internal/repository"
)

type MediaService interface {
	Upload(ctx context.Context, organizationID int64, file *multipart.FileHeader) (*models.MediaAsset, error)
	List(ctx context.Context, organizationID int64) ([]*models.MediaAsset, error)
}

type mediaService struct {
	ma repository.MediaAssetRepository
	r2 *R2Service
}

func NewMediaService(ma repository.MediaAssetRepository, r2 *R2Service) MediaService {
	return &mediaService{ma: ma, r2: r2}
}

var allowedExtensions = map[string]struct{}{
	"mp4": {}, "mov": {}, "jpeg": {}, "png": {}, "jpg": {},
}

func (s *mediaService) Upload(ctx context.Context, organizationID int64, file *multipart.FileHeader) (*models.MediaAsset, error) {
	fileContent, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer fileContent.Close()

	fileBytes, err := io.ReadAll(fileContent)
	if err != nil {
		return nil, fmt.Errorf("error reading file content: %w", err)
	}

	fileType, err := filetype.Match(fileBytes)
	if err != nil || fileType == types.Unknown {
		return nil, errors.New("unsupported file type")
	}
	if _, ok := allowedExtensions[fileType.Extension]; !ok {
		return nil, fmt.Errorf("file type %s is not allowed", fileType.Extension)
	}

	key, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	if err := s.r2.Upload(ctx, key, fileBytes, fileType.MIME.Value); err != nil {
		return nil, fmt.Errorf("error uploading file: %w", err)
	}

	asset := models.MediaAsset{
		OrganizationID: organizationID,
		FileName:       key,
		FileType:       fileType.MIME.Value,
		FileURL:        s.r2.PublicURL(key),
	}

	assetID, err := s.ma.Create(ctx, nil, &asset)
	if err != nil {
		return nil, fmt.Errorf("error saving media asset: %w", err)
	}
	asset.ID = assetID

	return &asset, nil
}

func (s *mediaService) List(ctx context.Context, organizationID int64) ([]*models.MediaAsset, error) {
	assets, err := s.ma.ListByOrganizationID(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("error listing media assets")
	}
	return assets, nil
}
