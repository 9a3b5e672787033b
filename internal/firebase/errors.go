// File: internal/firebase/errors.go
package firebase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"

	"desirius_backend/internal/common"
)

const (
	msgInvalidCredentials = "Usuário ou senha incorretos"
	msgEmailExists        = "Este e-mail já está registrado"
	msgEmailNotFound      = "E-mail não encontrado"
	msgWeakPassword       = "A senha deve ter pelo menos 6 caracteres"
	msgUserDisabled       = "Esta conta foi desativada"
	msgTooManyAttempts    = "Muitas tentativas. Tente novamente mais tarde"
	msgSessionExpired     = "Sua sessão expirou. Entre novamente"
	msgIdPFailed          = "Não foi possível entrar com o Google"
	msgProviderDown       = "O serviço de autenticação está indisponível"
)

// providerReason extracts the Identity Toolkit reason, e.g. "WEAK_PASSWORD : Password should be..." -> "WEAK_PASSWORD".
func providerReason(err error) (string, int, bool) {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return "", 0, false
	}
	reason := strings.TrimSpace(strings.SplitN(gerr.Message, ":", 2)[0])
	return reason, gerr.Code, true
}

// mapError converts provider failures into common API errors with user-facing messages.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := common.IsAPIError(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return common.ErrGatewayTimeout.WithDetails(msgProviderDown)
	}

	reason, code, ok := providerReason(err)
	if !ok {
		return fmt.Errorf("auth provider: %w", err)
	}
	switch reason {
	case "INVALID_PASSWORD", "EMAIL_NOT_FOUND", "INVALID_LOGIN_CREDENTIALS", "INVALID_EMAIL", "MISSING_PASSWORD":
		return common.ErrUnauthorized.WithDetails(msgInvalidCredentials)
	case "EMAIL_EXISTS":
		return common.ErrConflict.WithDetails(msgEmailExists)
	case "WEAK_PASSWORD":
		return common.ErrUnprocessableEntity.WithDetails(msgWeakPassword)
	case "USER_DISABLED":
		return common.ErrForbidden.WithDetails(msgUserDisabled)
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return common.ErrTooManyRequests.WithDetails(msgTooManyAttempts)
	case "INVALID_ID_TOKEN", "TOKEN_EXPIRED", "CREDENTIAL_TOO_OLD_LOGIN_AGAIN", "USER_NOT_FOUND":
		return common.ErrUnauthorized.WithDetails(msgSessionExpired)
	case "INVALID_IDP_RESPONSE":
		return common.ErrUnauthorized.WithDetails(msgIdPFailed)
	}
	if code >= http.StatusInternalServerError {
		return common.ErrServiceUnavailable.WithDetails(msgProviderDown)
	}
	return fmt.Errorf("auth provider: %w", err)
}

// mapResetError reports unknown e-mails as not found instead of as bad credentials.
func mapResetError(err error) error {
	if reason, _, ok := providerReason(err); ok && reason == "EMAIL_NOT_FOUND" {
		return common.ErrNotFound.WithDetails(msgEmailNotFound)
	}
	return mapError(err)
}
