package placeholder

// =============================================================================
// Placeholder Keys
// =============================================================================

// Placeholder keys recognised in templates.
const (
	KeyCluster           = "CLUSTER_FQN"
	KeyWorkspace         = "WORKSPACE_NAME"
	KeyEmail             = "USER_EMAIL"
	KeyMLRepo            = "ML_REPO_NAME"
	KeyStorageFQN        = "STORAGE_FQN"
	KeyVolume            = "VOLUME_NAME"
	KeyBaseDomain        = "BASE_DOMAIN"
	KeyHFToken           = "HF_TOKEN"
	KeySecretVal         = "MY_SECRET_VAL"
	KeyPasswordSecretFQN = "PASSWORD_SECRET_FQN"
	KeySSHPublicKey      = "SSH_PUBLIC_KEY"
)

// Default values used when the caller supplies nothing.
const (
	DefaultCluster           = "tfy-usea1-devtest"
	DefaultWorkspace         = "snl-ws"
	DefaultEmail             = "snehil.gajada@truefoundry.com"
	DefaultMLRepo            = "snl-ml-repo"
	DefaultStorageFQN        = "truefoundry:aws:tfy-usea1-ctl-devtest-internal:blob-storage:workflow-test"
	DefaultVolume            = "snl-vol6"
	DefaultBaseDomain        = "tfy-usea1-ctl.devtest.truefoundry.tech"
	DefaultHFToken           = "hf_xxxxxxxxxxxxxxxxxxxxxx"
	DefaultSecretVal         = "mysecret123"
	DefaultPasswordSecretFQN = "tfy-secret://truefoundry:volume-browser:password"
	DefaultSSHPublicKey      = "ssh-rsa AAAAB3NzaC1yc2EAAAADAQABAAACAQ...."
)

// secretKeys are masked by Redacted.
var secretKeys = map[string]bool{
	KeyHFToken:   true,
	KeySecretVal: true,
}

// =============================================================================
// Values
// =============================================================================

// Values holds the user-supplied inputs of a run.
type Values struct {
	Cluster           string `mapstructure:"cluster"`
	Workspace         string `mapstructure:"workspace"`
	Email             string `mapstructure:"email"`
	MLRepo            string `mapstructure:"mlrepo"`
	StorageFQN        string `mapstructure:"storage_fqn"`
	Volume            string `mapstructure:"volume"`
	BaseDomain        string `mapstructure:"base_domain"`
	HFToken           string `mapstructure:"hf_token"`
	SecretVal         string `mapstructure:"secret_val"`
	PasswordSecretFQN string `mapstructure:"password_secret_fqn"`
	SSHPublicKey      string `mapstructure:"ssh_public_key"`
}

// DefaultValues returns the built-in defaults for every input.
func DefaultValues() Values {
	return Values{
		Cluster:           DefaultCluster,
		Workspace:         DefaultWorkspace,
		Email:             DefaultEmail,
		MLRepo:            DefaultMLRepo,
		StorageFQN:        DefaultStorageFQN,
		Volume:            DefaultVolume,
		BaseDomain:        DefaultBaseDomain,
		HFToken:           DefaultHFToken,
		SecretVal:         DefaultSecretVal,
		PasswordSecretFQN: DefaultPasswordSecretFQN,
		SSHPublicKey:      DefaultSSHPublicKey,
	}
}

// Replacements maps every placeholder key to its value.
// Empty values are kept: an empty flag replaces the token with nothing.
func (v Values) Replacements() Replacements {
	return Replacements{
		KeyCluster:           v.Cluster,
		KeyWorkspace:         v.Workspace,
		KeyEmail:             v.Email,
		KeyMLRepo:            v.MLRepo,
		KeyStorageFQN:        v.StorageFQN,
		KeyVolume:            v.Volume,
		KeyBaseDomain:        v.BaseDomain,
		KeyHFToken:           v.HFToken,
		KeySecretVal:         v.SecretVal,
		KeyPasswordSecretFQN: v.PasswordSecretFQN,
		KeySSHPublicKey:      v.SSHPublicKey,
	}
}

// IsSecret reports whether the value of key must not be logged.
func IsSecret(key string) bool {
	return secretKeys[key]
}
