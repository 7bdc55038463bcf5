// Package registry looks up container images in ECR or any OCI registry.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/checker"
)

var (
	ErrImageNotFound      = errors.New("image not found")
	ErrRepositoryNotFound = errors.New("repository not found")

	errDescribeImages = errors.New("failed to describe images")
)

// ECRAPI is the subset of the ECR client used here.
type ECRAPI interface {
	DescribeImages(ctx context.Context, params *ecr.DescribeImagesInput, optFns ...func(*ecr.Options)) (*ecr.DescribeImagesOutput, error)
}

var _ checker.Registry = (*ECR)(nil)

type ECR struct {
	client ECRAPI
}

func NewECR(client ECRAPI) *ECR {
	return &ECR{client: client}
}

// DescribeImage confirms the tag exists in the repository.
func (r *ECR) DescribeImage(ctx context.Context, img checker.Image) error {
	in := &ecr.DescribeImagesInput{
		RepositoryName: aws.String(img.Repository),
		ImageIds:       []ecrtypes.ImageIdentifier{{ImageTag: aws.String(img.Tag)}},
	}
	// Cross account repositories must be addressed by registry id.
	if id := registryID(img.Locator); id != "" {
		in.RegistryId = aws.String(id)
	}

	out, err := r.client.DescribeImages(ctx, in)
	if err != nil {
		var inf *ecrtypes.ImageNotFoundException
		if errors.As(err, &inf) {
			return fmt.Errorf("%w: %s:%s", ErrImageNotFound, img.Repository, img.Tag)
		}
		var rnf *ecrtypes.RepositoryNotFoundException
		if errors.As(err, &rnf) {
			return fmt.Errorf("%w: %s", ErrRepositoryNotFound, img.Repository)
		}
		return fmt.Errorf("%w: %w", errDescribeImages, err)
	}
	if len(out.ImageDetails) == 0 {
		return fmt.Errorf("%w: %s:%s", ErrImageNotFound, img.Repository, img.Tag)
	}

	clog.FromContext(ctx).Info("found image in ECR",
		"repository", img.Repository,
		"tag", img.Tag,
		"digest", aws.ToString(out.ImageDetails[0].ImageDigest),
	)
	return nil
}

// registryID extracts the account id from an ECR repository URI of the form
// <account>.dkr.ecr.<region>.amazonaws.com/<name>. It returns "" for anything
// else.
func registryID(locator string) string {
	host, _, ok := strings.Cut(locator, "/")
	if !ok {
		return ""
	}
	account, rest, ok := strings.Cut(host, ".dkr.ecr.")
	if !ok || rest == "" || account == "" {
		return ""
	}
	for _, r := range account {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return account
}
