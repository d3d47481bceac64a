package models

// OverridesFile is the root of an HCL overrides file
type OverridesFile struct {
	Regions    []string         `hcl:"regions,optional"`
	ImageUsers []ImageUserBlock `hcl:"image_user,block"`
}

// ImageUserBlock pins the login user for one image id
type ImageUserBlock struct {
	ImageID string `hcl:"image_id,label"`
	User    string `hcl:"user"`
}
