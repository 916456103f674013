package shopline

import (
	"context"
	"strings"

	"golang.org/x/oauth2"

	"github.com/morris-shopline/shopline-tw-lab/internal/config"
	"github.com/morris-shopline/shopline-tw-lab/internal/constants"
)

// MerchantClient talks to the central auth service for the app-install
// flow.
type MerchantClient struct {
	oauth2Conf *oauth2.Config
	scope      string
	upstream   *Upstream
}

func NewMerchantClient(conf *config.MerchantConfig, upstream *Upstream) *MerchantClient {
	return &MerchantClient{
		oauth2Conf: &oauth2.Config{
			ClientID:     conf.ClientID,
			ClientSecret: conf.ClientSecret,
			RedirectURL:  conf.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   conf.AuthorizeURL,
				TokenURL:  conf.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		// The platform expects a comma-joined scope list.
		scope:    strings.Join(conf.Scopes, ","),
		upstream: upstream,
	}
}

func (m *MerchantClient) AuthCodeURL(state string) string {
	return m.oauth2Conf.AuthCodeURL(state,
		oauth2.SetAuthURLParam(constants.QueryParamScope, m.scope))
}

// Exchange trades an authorization code for tokens. Upstream rejections
// are returned as *oauth2.RetrieveError.
func (m *MerchantClient) Exchange(ctx context.Context, code string) (*Token, error) {
	ctx, cancel := m.upstream.context(ctx)
	defer cancel()

	t, err := m.oauth2Conf.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	return newToken(t), nil
}
