package moderation

import (
	"fmt"
	"strings"
)

var reasonMessages = map[string]string{
	ReasonProhibitedContent:    "El anuncio contiene términos prohibidos por las normas del sitio",
	ReasonSuspiciousPattern:    "El anuncio contiene patrones asociados a estafas",
	ReasonBlacklisted:          "El anuncio contiene términos o datos de contacto bloqueados",
	ReasonManualReviewTrigger:  "El anuncio requiere revisión manual",
	ReasonSpam:                 "El anuncio parece spam (texto repetido, exceso de mayúsculas, símbolos, teléfonos o enlaces)",
	ReasonDuplicate:            "El anuncio duplica otro ya publicado",
	ReasonLowConfidence:        "La confianza del análisis automático es insuficiente",
	ReasonAIUnavailable:        "El análisis automático no estaba disponible",
	ReasonAutoModerationOff:    "La moderación automática está desactivada",
	IssueClassifierError:       "No se pudo analizar el texto del anuncio",
	IssueParseError:            "La respuesta del análisis automático no pudo interpretarse",
	IssueInvalidImageReference: "Una de las imágenes no es válida",
	IssueImageAnalysisError:    "No se pudo analizar una de las imágenes",
	"sexual_content":           "Contenido sexual o desnudos",
	"violence":                 "Contenido violento",
	"weapons":                  "Armas o municiones",
	"drugs":                    "Drogas o sustancias prohibidas",
	"political_content":        "Contenido político no permitido",
	"occult_content":           "Material ocultista",
	"scam":                     "Posible estafa",
	"misleading":               "Información engañosa",
	"offensive_language":       "Lenguaje ofensivo",
	"prohibited_item":          "Artículo prohibido",
	"spam":                     "Contenido tipo spam",
	"unrelated_content":        "La imagen no corresponde a lo anunciado",
	"low_quality":              "Imagen de baja calidad",
}

// ReasonMessage returns the user-facing Spanish text for a reason tag.
func ReasonMessage(tag string) string {
	if msg, ok := reasonMessages[tag]; ok {
		return msg
	}
	return "Contenido no permitido: " + strings.ReplaceAll(tag, "_", " ")
}

// ReasonMessages translates every reason tag.
func ReasonMessages(tags []string) []string {
	out := make([]string, len(tags))
	for i, tag := range tags {
		out[i] = ReasonMessage(tag)
	}
	return out
}

// Explanation summarizes a result for the listing owner.
func Explanation(r Result) string {
	switch r.Decision {
	case DecisionApproved:
		return "Tu anuncio fue aprobado y ya está publicado."
	case DecisionPending:
		return "Tu anuncio quedó pendiente de revisión por un moderador."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tu anuncio no fue publicado (confianza %d%%, mínimo requerido %d%%).", r.Confidence, r.Threshold)
	if len(r.Reasons) > 0 {
		b.WriteString(" Motivos: ")
		b.WriteString(strings.Join(ReasonMessages(r.Reasons), "; "))
		b.WriteString(".")
	}
	b.WriteString(" Puedes corregirlo o apelar la decisión.")
	return b.String()
}
