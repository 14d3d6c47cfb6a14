package idp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"insights-dashboard/internal/auth"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

// cognitoAPI is the slice of the Cognito user-pool client used by the adapter.
type cognitoAPI interface {
	InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	RespondToAuthChallenge(ctx context.Context, in *cip.RespondToAuthChallengeInput, optFns ...func(*cip.Options)) (*cip.RespondToAuthChallengeOutput, error)
	GlobalSignOut(ctx context.Context, in *cip.GlobalSignOutInput, optFns ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error)
	AssociateSoftwareToken(ctx context.Context, in *cip.AssociateSoftwareTokenInput, optFns ...func(*cip.Options)) (*cip.AssociateSoftwareTokenOutput, error)
	VerifySoftwareToken(ctx context.Context, in *cip.VerifySoftwareTokenInput, optFns ...func(*cip.Options)) (*cip.VerifySoftwareTokenOutput, error)
	SetUserMFAPreference(ctx context.Context, in *cip.SetUserMFAPreferenceInput, optFns ...func(*cip.Options)) (*cip.SetUserMFAPreferenceOutput, error)
	GetUser(ctx context.Context, in *cip.GetUserInput, optFns ...func(*cip.Options)) (*cip.GetUserOutput, error)
}

// Cognito implements Provider against an AWS Cognito user pool app client.
// The app client must be public (no client secret).
type Cognito struct {
	api      cognitoAPI
	clientID string
}

var _ Provider = (*Cognito)(nil)

func NewCognito(ctx context.Context, region, clientID string) (*Cognito, error) {
	if clientID == "" {
		return nil, errors.New("cognito client id is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	return &Cognito{api: cip.NewFromConfig(cfg), clientID: clientID}, nil
}

func (c *Cognito) SignIn(ctx context.Context, email, password string) (Tokens, error) {
	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return Tokens{}, credentialError("InitiateAuth", err)
	}
	switch out.ChallengeName {
	case "":
	case types.ChallengeNameTypeSoftwareTokenMfa:
		return Tokens{}, &ChallengeError{Challenge: MFAChallenge{Username: email, Session: aws.ToString(out.Session)}}
	default:
		return Tokens{}, fmt.Errorf("InitiateAuth: %w: unsupported challenge %s", auth.ErrProviderError, out.ChallengeName)
	}
	return tokensFrom("InitiateAuth", out.AuthenticationResult)
}

func (c *Cognito) RespondToMFAChallenge(ctx context.Context, ch MFAChallenge, code string) (Tokens, error) {
	out, err := c.api.RespondToAuthChallenge(ctx, &cip.RespondToAuthChallengeInput{
		ChallengeName: types.ChallengeNameTypeSoftwareTokenMfa,
		ClientId:      aws.String(c.clientID),
		Session:       aws.String(ch.Session),
		ChallengeResponses: map[string]string{
			"USERNAME":                ch.Username,
			"SOFTWARE_TOKEN_MFA_CODE": code,
		},
	})
	if err != nil {
		var mismatch *types.CodeMismatchException
		if errors.As(err, &mismatch) {
			return Tokens{}, fmt.Errorf("RespondToAuthChallenge: %w", auth.ErrInvalidCode)
		}
		return Tokens{}, credentialError("RespondToAuthChallenge", err)
	}
	return tokensFrom("RespondToAuthChallenge", out.AuthenticationResult)
}

// RefreshTokens runs the REFRESH_TOKEN_AUTH flow.
func (c *Cognito) RefreshTokens(ctx context.Context, refreshToken string) (Tokens, error) {
	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeRefreshTokenAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"REFRESH_TOKEN": refreshToken,
		},
	})
	if err != nil {
		return Tokens{}, providerError("InitiateAuth", err)
	}
	return tokensFrom("InitiateAuth", out.AuthenticationResult)
}

func (c *Cognito) SignOut(ctx context.Context, accessToken string) error {
	if _, err := c.api.GlobalSignOut(ctx, &cip.GlobalSignOutInput{AccessToken: aws.String(accessToken)}); err != nil {
		return providerError("GlobalSignOut", err)
	}
	return nil
}

func (c *Cognito) AssociateSoftwareToken(ctx context.Context, accessToken string) (string, error) {
	out, err := c.api.AssociateSoftwareToken(ctx, &cip.AssociateSoftwareTokenInput{AccessToken: aws.String(accessToken)})
	if err != nil {
		return "", providerError("AssociateSoftwareToken", err)
	}
	secret := aws.ToString(out.SecretCode)
	if secret == "" {
		return "", fmt.Errorf("AssociateSoftwareToken: %w: empty secret code", auth.ErrProviderError)
	}
	return secret, nil
}

// VerifySoftwareToken reports a rejected code as VerifyError rather than as an
// exception, so callers see one shape for "wrong code".
func (c *Cognito) VerifySoftwareToken(ctx context.Context, accessToken, code string) (VerifyStatus, error) {
	out, err := c.api.VerifySoftwareToken(ctx, &cip.VerifySoftwareTokenInput{
		AccessToken: aws.String(accessToken),
		UserCode:    aws.String(code),
	})
	if err != nil {
		var mismatch *types.CodeMismatchException
		var rejected *types.EnableSoftwareTokenMFAException
		if errors.As(err, &mismatch) || errors.As(err, &rejected) {
			return VerifyError, nil
		}
		return "", providerError("VerifySoftwareToken", err)
	}
	if out.Status == types.VerifySoftwareTokenResponseTypeSuccess {
		return VerifySuccess, nil
	}
	return VerifyStatus(out.Status), nil
}

func (c *Cognito) SetSoftwareTokenMFA(ctx context.Context, accessToken string, enabled bool) error {
	_, err := c.api.SetUserMFAPreference(ctx, &cip.SetUserMFAPreferenceInput{
		AccessToken: aws.String(accessToken),
		SoftwareTokenMfaSettings: &types.SoftwareTokenMfaSettingsType{
			Enabled:      enabled,
			PreferredMfa: enabled,
		},
	})
	if err != nil {
		return providerError("SetUserMFAPreference", err)
	}
	return nil
}

func (c *Cognito) GetUser(ctx context.Context, accessToken string) (UserInfo, error) {
	out, err := c.api.GetUser(ctx, &cip.GetUserInput{AccessToken: aws.String(accessToken)})
	if err != nil {
		return UserInfo{}, providerError("GetUser", err)
	}
	u := UserInfo{
		Username:     aws.ToString(out.Username),
		EnabledMFA:   out.UserMFASettingList,
		PreferredMFA: aws.ToString(out.PreferredMfaSetting),
	}
	for _, a := range out.UserAttributes {
		switch aws.ToString(a.Name) {
		case auth.ClaimEmail:
			u.Email = aws.ToString(a.Value)
		case auth.ClaimClientID:
			u.ClientID = aws.ToString(a.Value)
		}
	}
	return u, nil
}

func tokensFrom(op string, res *types.AuthenticationResultType) (Tokens, error) {
	if res == nil {
		return Tokens{}, fmt.Errorf("%s: %w: no authentication result", op, auth.ErrTokenExchangeFailed)
	}
	t := Tokens{
		IDToken:      aws.ToString(res.IdToken),
		AccessToken:  aws.ToString(res.AccessToken),
		RefreshToken: aws.ToString(res.RefreshToken),
		ExpiresIn:    time.Duration(res.ExpiresIn) * time.Second,
	}
	if !t.Complete() {
		return Tokens{}, fmt.Errorf("%s: %w: incomplete token set", op, auth.ErrTokenExchangeFailed)
	}
	return t, nil
}

func credentialError(op string, err error) error {
	var notAuth *types.NotAuthorizedException
	var notFound *types.UserNotFoundException
	if errors.As(err, &notAuth) || errors.As(err, &notFound) {
		return fmt.Errorf("%s: %w", op, auth.ErrInvalidCredentials)
	}
	return providerError(op, err)
}

func providerError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, auth.ErrProviderError, err)
}
