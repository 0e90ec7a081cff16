// Package archive copies exported reports to S3 or Azure Blob Storage.
package archive

import (
	"context"
	"errors"
	"fmt"
	"mime"
	nethttp "net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/invdash/invdash/internal/logging"
)

// URL schemes.
const (
	SchemeS3     = "s3"
	SchemeAzBlob = "azblob"
)

// Environment variables read by OptionsFromEnv.
const (
	EnvEndpoint = "INVDASH_ARCHIVE_ENDPOINT"
	EnvRegion   = "INVDASH_ARCHIVE_REGION"
	EnvSASToken = "AZURE_STORAGE_SAS_TOKEN"
)

const defaultRegion = "us-east-1"

// UploadTimeout bounds a single archive upload.
const UploadTimeout = 5 * time.Minute

var ErrUnsupportedScheme = errors.New("archive URL must start with s3:// or azblob://")

// Target is a parsed archive URL.
//
//	s3://bucket/prefix
//	azblob://account/container/prefix
type Target struct {
	Scheme    string
	Account   string // azblob only
	Container string // bucket for s3
	Prefix    string
}

// ParseTarget parses an archive URL.
func ParseTarget(raw string) (*Target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid archive URL %q: %w", raw, err)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) == 1 && segments[0] == "" {
		segments = nil
	}

	switch u.Scheme {
	case SchemeS3:
		if u.Host == "" {
			return nil, fmt.Errorf("archive URL %q has no bucket", raw)
		}
		return &Target{Scheme: SchemeS3, Container: u.Host, Prefix: strings.Join(segments, "/")}, nil

	case SchemeAzBlob:
		if u.Host == "" {
			return nil, fmt.Errorf("archive URL %q has no storage account", raw)
		}
		if len(segments) == 0 {
			return nil, fmt.Errorf("archive URL %q has no container", raw)
		}
		return &Target{
			Scheme:    SchemeAzBlob,
			Account:   u.Host,
			Container: segments[0],
			Prefix:    strings.Join(segments[1:], "/"),
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, raw)
	}
}

// Key is the object name for fileName under the prefix.
func (t *Target) Key(fileName string) string {
	if t.Prefix == "" {
		return fileName
	}
	return path.Join(t.Prefix, fileName)
}

// URL renders the location of key.
func (t *Target) URL(key string) string {
	if t.Scheme == SchemeAzBlob {
		return fmt.Sprintf("azblob://%s/%s/%s", t.Account, t.Container, key)
	}
	return fmt.Sprintf("s3://%s/%s", t.Container, key)
}

// Options carry credentials and endpoints. Empty fields fall back to the
// SDK defaults (environment, shared config files).
type Options struct {
	HTTPClient *nethttp.Client

	// Endpoint overrides the service URL, for S3-compatible stores or a
	// local Azure emulator.
	Endpoint string
	Region   string

	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	SASToken string
}

// OptionsFromEnv reads the endpoint, region and SAS token from the
// environment.
func OptionsFromEnv() Options {
	return Options{
		Endpoint: os.Getenv(EnvEndpoint),
		Region:   os.Getenv(EnvRegion),
		SASToken: os.Getenv(EnvSASToken),
	}
}

// Archiver uploads files to one target.
type Archiver struct {
	target *Target
	opts   Options
	logger *logging.Logger
}

// New parses raw and returns an archiver for it. logger may be nil.
func New(raw string, opts Options, logger *logging.Logger) (*Archiver, error) {
	target, err := ParseTarget(raw)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Archiver{target: target, opts: opts, logger: logger}, nil
}

// Target returns the parsed destination.
func (a *Archiver) Target() *Target {
	return a.target
}

// Archive uploads the file at localPath and returns its archive URL.
func (a *Archiver) Archive(ctx context.Context, localPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, UploadTimeout)
	defer cancel()

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", localPath, err)
	}

	key := a.target.Key(filepath.Base(localPath))
	start := time.Now()

	switch a.target.Scheme {
	case SchemeS3:
		err = a.putS3(ctx, f, info.Size(), key)
	case SchemeAzBlob:
		err = a.putAzure(ctx, f, key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to %s: %w", filepath.Base(localPath), a.target.URL(key), err)
	}

	dest := a.target.URL(key)
	a.logger.Info().
		Str("dest", dest).
		Int64("bytes", info.Size()).
		Dur("elapsed", time.Since(start)).
		Msg("Archived export")
	return dest, nil
}

func (a *Archiver) putS3(ctx context.Context, f *os.File, size int64, key string) error {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if a.opts.HTTPClient != nil {
		loadOpts = append(loadOpts, awsconfig.WithHTTPClient(s3HTTPClient(a.opts.HTTPClient)))
	}
	if a.opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(a.opts.Region))
	}
	if a.opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(awscreds.NewStaticCredentialsProvider(
			a.opts.AccessKeyID,
			a.opts.SecretAccessKey,
			a.opts.SessionToken,
		)))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if a.opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(a.opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.target.Container),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType(key)),
	})
	return err
}

// s3HTTPClient carries a plain transport's proxy and TLS settings into a
// BuildableClient so the SDK can still apply AWS_CA_BUNDLE. Other transports
// (NTLM) are passed through unchanged.
func s3HTTPClient(hc *nethttp.Client) awsconfig.HTTPClient {
	tr, ok := hc.Transport.(*nethttp.Transport)
	if !ok {
		return hc
	}
	return awshttp.NewBuildableClient().
		WithTimeout(hc.Timeout).
		WithTransportOptions(func(t *nethttp.Transport) {
			t.Proxy = tr.Proxy
			if tr.DialContext != nil {
				t.DialContext = tr.DialContext
			}
			if tr.TLSClientConfig != nil {
				t.TLSClientConfig = tr.TLSClientConfig.Clone()
				if t.TLSClientConfig.RootCAs != nil {
					t.TLSClientConfig.RootCAs = t.TLSClientConfig.RootCAs.Clone()
				}
			}
		})
}

func (a *Archiver) putAzure(ctx context.Context, f *os.File, key string) error {
	serviceURL := a.opts.Endpoint
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", a.target.Account)
	}
	if a.opts.SASToken != "" {
		serviceURL = strings.TrimSuffix(serviceURL, "?") + "?" + strings.TrimPrefix(a.opts.SASToken, "?")
	}

	clientOpts := &azblob.ClientOptions{}
	if a.opts.HTTPClient != nil {
		clientOpts.ClientOptions = azcore.ClientOptions{Transport: a.opts.HTTPClient}
	}
	client, err := azblob.NewClientWithNoCredential(serviceURL, clientOpts)
	if err != nil {
		return fmt.Errorf("failed to create Azure client: %w", err)
	}

	_, err = client.UploadFile(ctx, a.target.Container, key, f, nil)
	return err
}

func contentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
