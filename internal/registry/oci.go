package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/terraform-provider-imagecheck/internal/checker"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
)

const userAgent = "terraform-provider-imagecheck"

var errHeadImage = errors.New("failed to fetch image descriptor")

var _ checker.Registry = (*OCI)(nil)

// OCI checks for images using the distribution API, for registries other
// than ECR. Unlike ECR the full locator is used, so nested repository paths
// are honored.
type OCI struct {
	ropts []remote.Option
}

// NewOCI returns an OCI registry client. With no options, credentials come
// from the default docker keychain.
func NewOCI(ropts ...remote.Option) *OCI {
	if len(ropts) == 0 {
		ropts = []remote.Option{
			remote.WithAuthFromKeychain(authn.DefaultKeychain),
		}
	}
	ropts = append(ropts, remote.WithUserAgent(userAgent))
	return &OCI{ropts: ropts}
}

func (r *OCI) DescribeImage(ctx context.Context, img checker.Image) error {
	ref, err := name.NewTag(img.Locator + ":" + img.Tag)
	if err != nil {
		return fmt.Errorf("parsing image reference: %w", err)
	}

	desc, err := remote.Head(ref, append(r.ropts, remote.WithContext(ctx))...)
	if err != nil {
		var terr *transport.Error
		if errors.As(err, &terr) && terr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrImageNotFound, ref)
		}
		return fmt.Errorf("%w: %w", errHeadImage, err)
	}

	clog.FromContext(ctx).Info("found image in registry", "ref", ref.String(), "digest", desc.Digest.String())
	return nil
}
