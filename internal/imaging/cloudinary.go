package imaging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/quickai/quickai/internal/upstream"
)

const (
	cloudinaryProvider = "cloudinary"

	// TransformBackgroundRemoval is applied as an incoming transformation.
	TransformBackgroundRemoval = "e_background_removal"
)

// cloudinaryAPI is the slice of the Cloudinary SDK the editor uses.
type cloudinaryAPI interface {
	Upload(ctx context.Context, file any, params uploader.UploadParams) (*uploader.UploadResult, error)
	ImageURL(publicID, transformation string) (string, error)
}

type cloudinarySDK struct {
	cld *cloudinary.Cloudinary
}

func (s cloudinarySDK) Upload(ctx context.Context, file any, params uploader.UploadParams) (*uploader.UploadResult, error) {
	return s.cld.Upload.Upload(ctx, file, params)
}

func (s cloudinarySDK) ImageURL(publicID, transformation string) (string, error) {
	img, err := s.cld.Image(publicID)
	if err != nil {
		return "", err
	}
	img.Transformation = transformation
	return img.String()
}

// CloudinaryConfig selects credentials. URL takes precedence.
type CloudinaryConfig struct {
	URL       string
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// CloudinaryEditor edits uploaded images with Cloudinary's AI effects and
// doubles as the fallback object store.
type CloudinaryEditor struct {
	api    cloudinaryAPI
	folder string
	logger *slog.Logger
}

// NewCloudinaryEditor creates an editor from cfg.
func NewCloudinaryEditor(cfg CloudinaryConfig, logger *slog.Logger) (*CloudinaryEditor, error) {
	var (
		cld *cloudinary.Cloudinary
		err error
	)
	switch {
	case cfg.URL != "":
		cld, err = cloudinary.NewFromURL(cfg.URL)
	case cfg.CloudName != "":
		cld, err = cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	default:
		return nil, fmt.Errorf("cloudinary: %w", ErrNotConfigured)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to configure cloudinary: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudinaryEditor{api: cloudinarySDK{cld: cld}, folder: cfg.Folder, logger: logger}, nil
}

// RemoveBackground uploads the image with background removal applied and
// returns the hosted URL.
func (e *CloudinaryEditor) RemoveBackground(ctx context.Context, image io.Reader) (string, error) {
	res, err := e.upload(ctx, image, uploader.UploadParams{
		Folder:         e.folder,
		Transformation: TransformBackgroundRemoval,
	})
	if err != nil {
		return "", fmt.Errorf("remove background: %w", err)
	}
	return res.SecureURL, nil
}

// RemoveObject uploads the image and returns a delivery URL that erases label.
func (e *CloudinaryEditor) RemoveObject(ctx context.Context, image io.Reader, label string) (string, error) {
	res, err := e.upload(ctx, image, uploader.UploadParams{Folder: e.folder})
	if err != nil {
		return "", fmt.Errorf("remove object: %w", err)
	}

	u, err := e.api.ImageURL(res.PublicID, GenRemoveTransformation(label))
	if err != nil {
		return "", fmt.Errorf("remove object: %w", upstream.Wrap(cloudinaryProvider, err))
	}
	return u, nil
}

// Put stores data under key and returns its hosted URL.
func (e *CloudinaryEditor) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyImage
	}
	publicID := strings.TrimSuffix(key, pathExt(key))
	res, err := e.upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID: publicID,
	})
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return res.SecureURL, nil
}

func (e *CloudinaryEditor) upload(ctx context.Context, file io.Reader, params uploader.UploadParams) (*uploader.UploadResult, error) {
	res, err := e.api.Upload(ctx, file, params)
	if err != nil {
		return nil, upstream.Wrap(cloudinaryProvider, err)
	}
	if res == nil {
		return nil, upstream.New(cloudinaryProvider, 0, "empty upload response")
	}
	if res.Error.Message != "" {
		return nil, upstream.New(cloudinaryProvider, 0, res.Error.Message)
	}
	if res.SecureURL == "" && res.PublicID == "" {
		return nil, upstream.New(cloudinaryProvider, 0, "upload returned no asset")
	}
	e.logger.Debug("image uploaded", "public_id", res.PublicID, "bytes", res.Bytes)
	return res, nil
}

// GenRemoveTransformation returns the generative-remove effect for label.
func GenRemoveTransformation(label string) string {
	return "e_gen_remove:prompt_" + url.PathEscape(strings.TrimSpace(label))
}

func pathExt(key string) string {
	if i := strings.LastIndexByte(key, '.'); i > strings.LastIndexByte(key, '/') {
		return key[i:]
	}
	return ""
}
