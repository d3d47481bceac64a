package hclconf

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"go.uber.org/zap"

	"ec2sshconfig/configuration"
	"ec2sshconfig/errors"
	"ec2sshconfig/generator"
	"ec2sshconfig/hclconf/models"
)

// Seeder accepts pinned image users
type Seeder interface {
	Seed(imageID, user string)
}

// LoadOverrides reads and validates an HCL overrides file
func LoadOverrides(path string) (*models.OverridesFile, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.ErrOverrides, "failed to read overrides file",
			map[string]interface{}{
				"path": path,
			}, err)
	}
	return ParseOverrides(path, src)
}

// ParseOverrides decodes src as HCL; filename only needs the .hcl suffix
// and is used in diagnostics
func ParseOverrides(filename string, src []byte) (*models.OverridesFile, error) {
	var file models.OverridesFile
	if err := hclsimple.Decode(filename, src, nil, &file); err != nil {
		return nil, errors.New(errors.ErrOverrides, "failed to decode overrides",
			map[string]interface{}{
				"path": filename,
			}, err)
	}
	return validate(filename, &file)
}

func validate(path string, file *models.OverridesFile) (*models.OverridesFile, error) {
	var result error
	seen := make(map[string]bool, len(file.ImageUsers))
	for _, block := range file.ImageUsers {
		if strings.TrimSpace(block.ImageID) == "" {
			result = multierror.Append(result, fmt.Errorf("image_user block with empty image id"))
			continue
		}
		if strings.TrimSpace(block.User) == "" {
			result = multierror.Append(result, fmt.Errorf("image_user %q: empty user", block.ImageID))
		} else if !generator.IsSSHToken(block.User) {
			result = multierror.Append(result, fmt.Errorf("image_user %q: user %q is not a plain login name", block.ImageID, block.User))
		}
		if seen[block.ImageID] {
			result = multierror.Append(result, fmt.Errorf("image_user %q: declared more than once", block.ImageID))
		}
		seen[block.ImageID] = true
	}
	seenRegion := make(map[string]bool, len(file.Regions))
	for _, region := range file.Regions {
		region = strings.TrimSpace(region)
		if region == "" {
			result = multierror.Append(result, fmt.Errorf("regions: empty entry"))
			continue
		}
		if seenRegion[region] {
			result = multierror.Append(result, fmt.Errorf("regions: %q listed more than once", region))
		}
		seenRegion[region] = true
	}

	if result != nil {
		return nil, errors.New(errors.ErrOverrides, "invalid overrides",
			map[string]interface{}{
				"path": path,
			}, result)
	}

	zap.L().Info("Overrides loaded",
		zap.String("package", "hclconf"),
		zap.String("operation", "overrides_load"),
		zap.String("path", path),
		zap.Int("region_count", len(file.Regions)),
		zap.Int("image_user_count", len(file.ImageUsers)),
	)
	return file, nil
}

// Apply seeds every pinned image user and returns the regions to query:
// the file's regions, trimmed and deduplicated, when it declares any,
// otherwise fallback
func Apply(file *models.OverridesFile, seeder Seeder, fallback []string) []string {
	if file == nil {
		return fallback
	}
	for _, block := range file.ImageUsers {
		seeder.Seed(block.ImageID, block.User)
	}
	if regions := configuration.ParseRegions(file.Regions); len(regions) > 0 {
		return regions
	}
	return fallback
}
