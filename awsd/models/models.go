package models

// Tag is a single EC2 key/value tag. Instances keep tags as an ordered list
// so duplicate keys resolve last-write-wins when folded into a map.
type Tag struct {
	Key   string
	Value string
}

// Instance represents the fields of a running EC2 instance that the
// SSH config generator consumes
type Instance struct {
	InstanceID string
	Region     string
	PrivateIP  string
	PublicIP   string
	ImageID    string
	KeyName    string
	Tags       []Tag
}

// TagMap folds the tag list into a map; later keys overwrite earlier ones
func (i Instance) TagMap() map[string]string {
	tags := make(map[string]string, len(i.Tags))
	for _, tag := range i.Tags {
		tags[tag.Key] = tag.Value
	}
	return tags
}

// Image represents the AMI metadata used to guess the login user
type Image struct {
	ImageID     string
	Name        string
	Description string
}
