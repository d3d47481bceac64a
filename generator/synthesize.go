package generator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	awsm "ec2sshconfig/awsd/models"
	genm "ec2sshconfig/generator/models"
)

// Tag keys read from instances
const (
	TagName    = "Name"
	TagEnv     = "Env"
	TagService = "Service"
	TagBastion = "Bastion"
)

const (
	// DefaultEnvironment groups instances without an Env tag
	DefaultEnvironment = "EC2"
	// BastionEnvironment groups every instance classified as a bastion
	BastionEnvironment = "Bastion"

	bastionService        = "bastion"
	bastionDynamicForward = "127.0.0.1:1080"
	identityFileTemplate  = "~/.ssh/%s.pem"
	proxyCommandTemplate  = "ssh -q %s nc %%h 22"
)

// sshToken matches values that are emitted unquoted into a Host line, a
// ProxyCommand or an IdentityFile path. Tag values are user controlled, so
// anything else could add directives or shell to the generated config.
var sshToken = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._@:-]*$`)

// IsSSHToken reports whether v can be written into the config verbatim
func IsSSHToken(v string) bool {
	return sshToken.MatchString(v)
}

// headerSafe reports whether v can appear in a comment line
func headerSafe(v string) bool {
	return strings.IndexFunc(v, unicode.IsControl) < 0
}

// IsBastion reports whether the tags mark the instance as a jump host.
// Only an explicit Service=bastion tag does; a missing Bastion tag does not.
func IsBastion(tags map[string]string) bool {
	return strings.EqualFold(tags[TagService], bastionService)
}

// Synthesize builds the host record for one instance. It returns nil when the
// record is incomplete (no address or no user) or carries a value that is not
// safe to emit, and an error only when the image user could not be resolved.
// An unsafe Name or Env tag falls back to the default instead.
func Synthesize(ctx context.Context, inst awsm.Instance, users UserResolver) (*genm.HostRecord, error) {
	tags := inst.TagMap()

	user, err := users.Resolve(ctx, inst.Region, inst.ImageID)
	if err != nil {
		return nil, err
	}

	record := genm.HostRecord{
		Label:        inst.InstanceID,
		Address:      inst.PrivateIP,
		User:         user,
		IdentityFile: fmt.Sprintf(identityFileTemplate, inst.KeyName),
		Environment:  DefaultEnvironment,
		InstanceID:   inst.InstanceID,
	}
	if name := tags[TagName]; name != "" && IsSSHToken(name) {
		record.Label = name
	}
	if env := tags[TagEnv]; env != "" && headerSafe(env) {
		record.Environment = env
	}

	if IsBastion(tags) {
		record.Environment = BastionEnvironment
		record.Address = inst.PublicIP
		record.DynamicForward = bastionDynamicForward
	} else if jump := tags[TagBastion]; jump != "" {
		if !IsSSHToken(jump) {
			return nil, nil
		}
		record.ProxyCommand = fmt.Sprintf(proxyCommandTemplate, jump)
	}

	if !record.Complete() {
		return nil, nil
	}
	if !IsSSHToken(record.Label) || !IsSSHToken(record.User) {
		return nil, nil
	}
	if inst.KeyName != "" && !IsSSHToken(inst.KeyName) {
		return nil, nil
	}
	return &record, nil
}
