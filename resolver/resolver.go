// Package resolver maps AMI ids to the login user of the image.
//
// The mapping is a best-effort heuristic over the image name and
// description, memoized for the lifetime of a single run.
package resolver

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"ec2sshconfig/awsd/models"
	"ec2sshconfig/errors"
)

const (
	packageName = "resolver"
)

// Known login users
const (
	UserUbuntu    = "ubuntu"
	UserAmazon    = "ec2-user"
	UserFallback  = "root"
	matchUbuntu   = "ubuntu"
	matchAmazonLx = "amazon linux"
)

// ImageDescriber fetches metadata for one image in one region
type ImageDescriber interface {
	DescribeImage(ctx context.Context, region, imageID string) (*models.Image, error)
}

// Resolver memoizes image id -> login user. Concurrent lookups for the same
// id share a single DescribeImage call.
type Resolver struct {
	images ImageDescriber
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]string
	group singleflight.Group
}

// New returns a Resolver with an empty cache
func New(images ImageDescriber, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.L()
	}
	return &Resolver{
		images: images,
		logger: logger.With(zap.String("package", packageName)),
		cache:  make(map[string]string),
	}
}

// Seed pins the user for an image id. Seeded ids are never fetched.
func (r *Resolver) Seed(imageID, user string) {
	r.mu.Lock()
	r.cache[imageID] = user
	r.mu.Unlock()
}

// Cached returns the cached user for imageID without fetching
func (r *Resolver) Cached(imageID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.cache[imageID]
	return user, ok
}

// Len reports how many image ids are cached
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

// Resolve returns the login user for imageID, fetching the image from region
// on a cache miss. Failed fetches are not cached.
func (r *Resolver) Resolve(ctx context.Context, region, imageID string) (string, error) {
	if imageID == "" {
		return "", errors.NewResolutionError(imageID, fmt.Errorf("empty image id"))
	}
	if user, ok := r.Cached(imageID); ok {
		return user, nil
	}

	v, err, shared := r.group.Do(imageID, func() (interface{}, error) {
		// a caller that lost the race may arrive after the winner stored
		if user, ok := r.Cached(imageID); ok {
			return user, nil
		}

		image, err := r.images.DescribeImage(ctx, region, imageID)
		if err != nil {
			return nil, errors.NewResolutionError(imageID, err)
		}

		user := Classify(image.Name, image.Description)
		r.Seed(imageID, user)

		r.logger.Debug("Image user resolved",
			zap.String("function", "Resolve"),
			zap.String("operation", "image_resolution"),
			zap.String("region", region),
			zap.String("image_id", imageID),
			zap.String("image_name", image.Name),
			zap.String("user", user),
		)
		return user, nil
	})
	if err != nil {
		r.logger.Error("Image user resolution failed",
			zap.String("function", "Resolve"),
			zap.String("operation", "image_resolution"),
			zap.String("region", region),
			zap.String("image_id", imageID),
			zap.Bool("shared", shared),
			zap.Error(err),
		)
		return "", err
	}
	return v.(string), nil
}

// Classify guesses the login user from image metadata. Name is matched before
// description; the match is a case-insensitive substring test.
func Classify(name, description string) string {
	text := strings.ToLower(name + " " + description)
	switch {
	case strings.Contains(text, matchUbuntu):
		return UserUbuntu
	case strings.Contains(text, matchAmazonLx):
		return UserAmazon
	default:
		return UserFallback
	}
}
