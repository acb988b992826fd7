package service

import (
	"errors"

	"github.com/electrix/tracker/internal/core/domain"
	"github.com/electrix/tracker/internal/core/view"
)

var actionTitles = map[string]string{
	"create_client":   "Error al crear cliente",
	"update_client":   "Error al actualizar cliente",
	"delete_client":   "Error al eliminar cliente",
	"create_project":  "Error al crear proyecto",
	"rename_project":  "Error al actualizar proyecto",
	"delete_project":  "Error al eliminar proyecto",
	"create_unit":     "Error al crear vivienda",
	"rename_unit":     "Error al actualizar nombre",
	"delete_unit":     "Error al eliminar vivienda",
	"toggle_stage":    "Error al actualizar estado",
	"save_comment":    "Error al guardar el comentario",
	"upload_image":    "Error al subir imagen",
	"delete_image":    "Error al eliminar la imagen",
	"generate_access": "Error al crear credenciales",
	"create_tx":       "Error al guardar",
	"update_tx":       "Error al actualizar",
	"delete_tx":       "Error al eliminar",
	"change_role":     "Error al actualizar rol",
	"toggle_active":   "Error al actualizar estado",
	"delete_profile":  "Error al eliminar usuario",
	"reset_password":  "Error al restablecer contraseña",
	"register":        "Error al registrar usuario",
}

func alertFor(action string, err error) view.Alert {
	title, ok := actionTitles[action]
	if !ok {
		title = "Error"
	}
	return view.Alert{Title: title, Message: UserMessage(err)}
}

// inputError is a rejected form value. Its text is shown to the user as is.
type inputError string

func (e inputError) Error() string { return string(e) }

// UserMessage turns an error into the localized text shown to the user.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrForbidden):
		return "No tienes permisos para realizar esta acción."
	case errors.Is(err, domain.ErrConflict):
		return "El registro ya existe."
	case errors.Is(err, domain.ErrNotFound):
		return "El registro ya no existe."
	case errors.Is(err, domain.ErrBackendUnavailable):
		return "No se pudo conectar con el servidor. Intenta nuevamente."
	case errors.Is(err, domain.ErrUnauthenticated):
		return "Tu sesión expiró. Inicia sesión nuevamente."
	default:
		var ie inputError
		if errors.As(err, &ie) {
			return string(ie)
		}
		return "Ocurrió un error inesperado."
	}
}
