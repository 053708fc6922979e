package firmware

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

var (
	downloadRetryDelay = 4 * time.Second

	ErrDownload = errors.New("error downloading firmware artifact")
	ErrChecksum = errors.New("error validating artifact checksum")
)

// download fetches the artifact into dst
func download(ctx context.Context, fileURL, dst string) error {
	fileHandle, err := os.Create(dst)
	if err != nil {
		return err
	}

	defer fileHandle.Close()

	req, err := http.NewRequestWithContext(ctx, "GET", fileURL, http.NoBody)
	if err != nil {
		return err
	}

	requestRetryable, err := retryablehttp.FromRequest(req)
	if err != nil {
		return err
	}

	client := retryablehttp.NewClient()
	client.RetryWaitMin = downloadRetryDelay
	client.Logger = nil

	resp, err := client.Do(requestRetryable)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Wrap(ErrDownload, fmt.Sprintf("status code %s", resp.Status))
	}

	_, err = io.Copy(fileHandle, resp.Body)
	if err != nil {
		return err
	}

	return nil
}

// checksumValidateSHA256 verifies the downloaded artifact against the
// expected sha256 checksum, an empty checksum skips validation.
func checksumValidateSHA256(filename, checksum string) error {
	if checksum == "" {
		return nil
	}

	f, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(ErrChecksum, err.Error()+" "+filename)
	}
	defer f.Close()

	h := sha256.New()

	if _, err := io.Copy(h, f); err != nil {
		return errors.Wrap(ErrChecksum, err.Error())
	}

	calculated := fmt.Sprintf("%x", h.Sum(nil))
	if calculated != checksum {
		errMsg := fmt.Sprintf(
			"filename: %s expected: %s, got: %s",
			filename,
			checksum,
			calculated,
		)

		return errors.Wrap(ErrChecksum, errMsg)
	}

	return nil
}
