package domain

// Intent is the coarse routing label for a free-text message.
type Intent string

const (
	IntentVentas          Intent = "ventas"
	IntentSoporte         Intent = "soporte"
	IntentPreguntaGeneral Intent = "pregunta_general"
)

// Sentiment labels the emotional tone of a support request.
type Sentiment string

const (
	SentimentEnojado   Sentiment = "enojado"
	SentimentFrustrado Sentiment = "frustrado"
	SentimentNeutro    Sentiment = "neutro"
	SentimentContento  Sentiment = "contento"
)

// Confirmation is a yes/no read of a free-text answer. Ambiguous or failed
// classifications must degrade to ConfirmationNo, never auto-confirm.
type Confirmation string

const (
	ConfirmationYes Confirmation = "SI"
	ConfirmationNo  Confirmation = "NO"
)

// Sentinels and tags embedded in classifier replies.
const (
	NoAnswerSentinel = "[NO_ANSWER]"
	TagAddressFound  = "[DIRECCION_DETECTADA]"
	TagDirectClose   = "[CIERRE_DIRECTO]"
)
