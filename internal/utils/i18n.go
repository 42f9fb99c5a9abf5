package utils

// Page chrome strings. Question text lives in the questionnaire catalog.

var translations = map[string]map[string]string{
	"en": {
		"health.ok":              "ok",
		"questionnaire.submit":   "Submit",
		"questionnaire.recorded": "Your responses have been recorded.",
		"questionnaire.proceed":  "To download your result, please proceed to payment.",
		"questionnaire.checkout": "Go to Checkout",
		"questionnaire.failed":   "Failed to create a checkout session. Please try again.",
		"error.generic":          "Something went wrong. Please start again.",
		"success.title":          "Payment Successful",
		"success.thanks":         "Thank you for your payment. You can now download your result.",
		"success.download":       "Download Result",
		"success.empty":          "No responses to display.",
		"cancel.title":           "Payment Cancelled",
		"cancel.message":         "Your payment was cancelled. Please try again.",
		"cancel.retry":           "Back to the questionnaire",
	},
	"es": {
		"health.ok":              "ok",
		"questionnaire.submit":   "Enviar",
		"questionnaire.recorded": "Sus respuestas han sido registradas.",
		"questionnaire.proceed":  "Para descargar su resultado, proceda al pago.",
		"questionnaire.checkout": "Ir al pago",
		"questionnaire.failed":   "No se pudo crear la sesión de pago. Inténtelo de nuevo.",
		"error.generic":          "Algo salió mal. Vuelva a empezar.",
		"success.title":          "Pago realizado",
		"success.thanks":         "Gracias por su pago. Ya puede descargar su resultado.",
		"success.download":       "Descargar resultado",
		"success.empty":          "No hay respuestas para mostrar.",
		"cancel.title":           "Pago cancelado",
		"cancel.message":         "Su pago fue cancelado. Inténtelo de nuevo.",
		"cancel.retry":           "Volver al cuestionario",
	},
}

// T returns the translated string for key in locale; falls back to English.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if v, ok := translations["en"][key]; ok {
		return v
	}
	return key
}
