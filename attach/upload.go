package attach

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"peertalk/models"
)

// Uploader is the pair of opaque upload calls provided by the backend.
// UploadVideo returns the raw response body because the endpoint answers
// with either a bare URL string or a {"url": ...} object.
type Uploader interface {
	UploadImage(ctx context.Context, name string, data []byte) (string, error)
	UploadVideo(ctx context.Context, name string, data []byte) (json.RawMessage, error)
}

// Resolved holds the public URLs of an uploaded batch, in selection order.
type Resolved struct {
	Images []string
	Videos []models.Video
}

// Upload sends every pending attachment concurrently and waits for the whole
// batch to settle. A single failing upload does not stop the others, but any
// failure fails the batch: the first error is returned and the send pipeline
// must not proceed.
func Upload(ctx context.Context, uploader Uploader, pending []Pending) (Resolved, error) {
	urls := make([]string, len(pending))

	// Deliberately not errgroup.WithContext: a failure must not cancel the
	// sibling uploads, the batch settles as a whole.
	var g errgroup.Group
	for i, p := range pending {
		i, p := i, p
		g.Go(func() error {
			switch p.Kind {
			case KindImage:
				url, err := uploader.UploadImage(ctx, p.Name, p.Data)
				if err != nil {
					return fmt.Errorf("failed to upload image %q: %w", p.Name, err)
				}
				urls[i] = url
			case KindVideo:
				raw, err := uploader.UploadVideo(ctx, p.Name, p.Data)
				if err != nil {
					return fmt.Errorf("failed to upload video %q: %w", p.Name, err)
				}
				url, err := unwrapVideoURL(raw)
				if err != nil {
					return fmt.Errorf("bad video upload response for %q: %w", p.Name, err)
				}
				urls[i] = url
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Resolved{}, err
	}

	var resolved Resolved
	for i, p := range pending {
		switch p.Kind {
		case KindImage:
			resolved.Images = append(resolved.Images, urls[i])
		case KindVideo:
			resolved.Videos = append(resolved.Videos, models.Video{
				URL:   urls[i],
				Title: p.Name,
			})
		}
	}
	return resolved, nil
}

// unwrapVideoURL accepts both response shapes of the video upload endpoint:
// "https://..." and {"url": "https://..."}.
func unwrapVideoURL(raw json.RawMessage) (string, error) {
	var url string
	if err := json.Unmarshal(raw, &url); err == nil {
		return url, nil
	}

	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", err
	}
	if obj.URL == "" {
		return "", fmt.Errorf("no url in response %q", raw)
	}
	return obj.URL, nil
}
