package types

type ProviderName int

const (
	GoogleProvider ProviderName = iota
	FacebookProvider
)

var Providers = map[ProviderName]string{
	GoogleProvider:   "google",
	FacebookProvider: "facebook",
}

func (prov ProviderName) String() string {
	return Providers[prov]
}

// GuestName stands in for the Facebook display name on the guest path.
const GuestName = "訪客"
