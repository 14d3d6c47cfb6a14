package idp

import (
	"context"
	"errors"
	"testing"

	"insights-dashboard/internal/auth"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

type fakeCognito struct {
	initiateIn  *cip.InitiateAuthInput
	initiateOut *cip.InitiateAuthOutput
	initiateErr error

	verifyOut *cip.VerifySoftwareTokenOutput
	verifyErr error

	prefIn *cip.SetUserMFAPreferenceInput

	getUserOut *cip.GetUserOutput
}

func (f *fakeCognito) InitiateAuth(_ context.Context, in *cip.InitiateAuthInput, _ ...func(*cip.Options)) (*cip.InitiateAuthOutput, error) {
	f.initiateIn = in
	return f.initiateOut, f.initiateErr
}

func (f *fakeCognito) RespondToAuthChallenge(context.Context, *cip.RespondToAuthChallengeInput, ...func(*cip.Options)) (*cip.RespondToAuthChallengeOutput, error) {
	return nil, &types.CodeMismatchException{Message: aws.String("mismatch")}
}

func (f *fakeCognito) GlobalSignOut(context.Context, *cip.GlobalSignOutInput, ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error) {
	return &cip.GlobalSignOutOutput{}, nil
}

func (f *fakeCognito) AssociateSoftwareToken(context.Context, *cip.AssociateSoftwareTokenInput, ...func(*cip.Options)) (*cip.AssociateSoftwareTokenOutput, error) {
	return &cip.AssociateSoftwareTokenOutput{SecretCode: aws.String("JBSWY3DPEHPK3PXP")}, nil
}

func (f *fakeCognito) VerifySoftwareToken(context.Context, *cip.VerifySoftwareTokenInput, ...func(*cip.Options)) (*cip.VerifySoftwareTokenOutput, error) {
	return f.verifyOut, f.verifyErr
}

func (f *fakeCognito) SetUserMFAPreference(_ context.Context, in *cip.SetUserMFAPreferenceInput, _ ...func(*cip.Options)) (*cip.SetUserMFAPreferenceOutput, error) {
	f.prefIn = in
	return &cip.SetUserMFAPreferenceOutput{}, nil
}

func (f *fakeCognito) GetUser(context.Context, *cip.GetUserInput, ...func(*cip.Options)) (*cip.GetUserOutput, error) {
	return f.getUserOut, nil
}

func TestCognito_RefreshUsesRefreshTokenFlow(t *testing.T) {
	f := &fakeCognito{initiateOut: &cip.InitiateAuthOutput{AuthenticationResult: &types.AuthenticationResultType{
		IdToken:     aws.String("id"),
		AccessToken: aws.String("acc"),
		ExpiresIn:   3600,
	}}}
	c := &Cognito{api: f, clientID: "client"}

	tok, err := c.RefreshTokens(context.Background(), "rt")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if f.initiateIn.AuthFlow != types.AuthFlowTypeRefreshTokenAuth {
		t.Fatalf("expected REFRESH_TOKEN_AUTH, got %s", f.initiateIn.AuthFlow)
	}
	if f.initiateIn.AuthParameters["REFRESH_TOKEN"] != "rt" {
		t.Fatalf("refresh token not forwarded")
	}
	if tok.IDToken != "id" || tok.AccessToken != "acc" || tok.RefreshToken != "" {
		t.Fatalf("unexpected tokens: %+v", tok)
	}
}

func TestCognito_RefreshIncompleteTokens(t *testing.T) {
	f := &fakeCognito{initiateOut: &cip.InitiateAuthOutput{AuthenticationResult: &types.AuthenticationResultType{
		IdToken: aws.String("id"),
	}}}
	c := &Cognito{api: f, clientID: "client"}
	if _, err := c.RefreshTokens(context.Background(), "rt"); !errors.Is(err, auth.ErrTokenExchangeFailed) {
		t.Fatalf("expected ErrTokenExchangeFailed, got %v", err)
	}
}

func TestCognito_SignInErrors(t *testing.T) {
	f := &fakeCognito{initiateErr: &types.NotAuthorizedException{Message: aws.String("Incorrect username or password.")}}
	c := &Cognito{api: f, clientID: "client"}
	if _, err := c.SignIn(context.Background(), "a@example.com", "pw"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	f.initiateErr = nil
	f.initiateOut = &cip.InitiateAuthOutput{ChallengeName: types.ChallengeNameTypeSoftwareTokenMfa, Session: aws.String("sess")}
	_, err := c.SignIn(context.Background(), "a@example.com", "pw")
	if !errors.Is(err, auth.ErrMFARequired) {
		t.Fatalf("expected ErrMFARequired, got %v", err)
	}
	var ce *ChallengeError
	if !errors.As(err, &ce) || ce.Challenge.Session != "sess" || ce.Challenge.Username != "a@example.com" {
		t.Fatalf("expected challenge details, got %v", err)
	}

	f.initiateErr = errors.New("throttled")
	if _, err := c.SignIn(context.Background(), "a@example.com", "pw"); !errors.Is(err, auth.ErrProviderError) {
		t.Fatalf("expected ErrProviderError, got %v", err)
	}
}

func TestCognito_ChallengeCodeMismatch(t *testing.T) {
	c := &Cognito{api: &fakeCognito{}, clientID: "client"}
	_, err := c.RespondToMFAChallenge(context.Background(), MFAChallenge{Username: "u", Session: "s"}, "1")
	if !errors.Is(err, auth.ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
}

func TestCognito_VerifySoftwareToken(t *testing.T) {
	f := &fakeCognito{verifyOut: &cip.VerifySoftwareTokenOutput{Status: types.VerifySoftwareTokenResponseTypeSuccess}}
	c := &Cognito{api: f, clientID: "client"}
	if st, err := c.VerifySoftwareToken(context.Background(), "acc", "000000"); err != nil || st != VerifySuccess {
		t.Fatalf("expected SUCCESS, got %q %v", st, err)
	}

	f.verifyOut, f.verifyErr = nil, &types.EnableSoftwareTokenMFAException{Message: aws.String("Code mismatch")}
	if st, err := c.VerifySoftwareToken(context.Background(), "acc", "1"); err != nil || st != VerifyError {
		t.Fatalf("expected ERROR status, got %q %v", st, err)
	}
}

func TestCognito_SetSoftwareTokenMFA(t *testing.T) {
	f := &fakeCognito{}
	c := &Cognito{api: f, clientID: "client"}
	if err := c.SetSoftwareTokenMFA(context.Background(), "acc", false); err != nil {
		t.Fatalf("set: %v", err)
	}
	s := f.prefIn.SoftwareTokenMfaSettings
	if s == nil || s.Enabled || s.PreferredMfa {
		t.Fatalf("expected disabled and not preferred, got %+v", s)
	}
}

func TestCognito_GetUser(t *testing.T) {
	f := &fakeCognito{getUserOut: &cip.GetUserOutput{
		Username:           aws.String("u-1"),
		UserMFASettingList: []string{MFASoftwareToken},
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String("o@example.com")},
			{Name: aws.String("custom:clientId"), Value: aws.String("acme")},
		},
	}}
	c := &Cognito{api: f, clientID: "client"}
	u, err := c.GetUser(context.Background(), "acc")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !u.SoftwareTokenEnabled() || u.Email != "o@example.com" || u.ClientID != "acme" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if (UserInfo{}).SoftwareTokenEnabled() {
		t.Fatalf("absent list must mean disabled")
	}
}
