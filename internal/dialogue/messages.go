package dialogue

// User-facing texts. Everything the customer sees is plain Spanish; raw
// error codes never reach the channel.
const (
	msgMainMenu = "¡Hola! 👋 Bienvenido a nuestro servicio de salud.\n\n" +
		"Escribe el número de la opción que necesitas:\n\n" +
		"1️⃣ Videollamada con un especialista\n" +
		"2️⃣ Historia clínica\n" +
		"3️⃣ Consultar mis citas\n" +
		"4️⃣ Hablar con un agente"

	msgGreetPrompt = "Entiendo que necesitas ayuda. Escribe 'hola' para ver las opciones disponibles."

	msgTransfer = "🔄 Te estoy conectando con un agente humano. Por favor espera un momento..."

	msgInvalidOption = "Esa opción no es válida. Por favor responde con un número del 1 al 4."

	msgAskDocumentVideoCall    = "Para agendar tu videollamada, por favor escribe tu número de documento."
	msgAskDocumentHistory      = "Para consultar tu historia clínica, por favor escribe tu número de documento."
	msgAskDocumentAppointments = "Para consultar tus citas, por favor escribe tu número de documento."

	msgVideoCallReady = "✅ %s, tu sala de videollamada está lista. Abre el enlace para unirte."
	msgVideoCallLink  = "🔗 Enlace directo: %s"

	msgHistoryFound = "✅ Encontramos la historia clínica de %s (caso %s).\n" +
		"¿Deseas actualizar tus datos? Responde 'si' para actualizarla o 'no' para dejarla como está."
	msgHistoryKept = "De acuerdo, tu historia clínica se mantiene sin cambios. Escribe 'hola' si necesitas algo más."

	msgNoAppointments = "No encontramos citas programadas para tu documento. Escribe 'hola' para volver al menú."

	msgPatientNotFound = "😔 Lo sentimos, no encontramos un registro con ese documento. " +
		"Verifica el número o escribe 'hola' para volver al menú."

	msgCollaboratorDown = "😔 En este momento no podemos consultar el sistema. " +
		"Por favor intenta de nuevo en unos minutos."

	msgCaptureStart = "No encontramos una historia clínica con ese documento. Vamos a crear una. " +
		"Puedes escribir 'cancelar' en cualquier momento para salir.\n\n¿Cuál es tu nombre completo?"
	msgCaptureUpdateStart = "Vamos a actualizar tu historia clínica. " +
		"Puedes escribir 'cancelar' en cualquier momento para salir.\n\n¿Cuál es tu nombre completo?"

	msgAskBirthDate = "Gracias. Ahora escribe tu fecha de nacimiento en formato DD/MM/AAAA."
	msgAskAddress   = "Perfecto. ¿Cuál es tu dirección de residencia?"
	msgAskPhone     = "Anotado. ¿Cuál es tu número de teléfono de contacto?"
	msgAskEmail     = "Muy bien. Por último, escribe tu correo electrónico."

	msgReemptyName      = "Necesito tu nombre completo para continuar. Por favor escríbelo."
	msgInvalidBirthDate = "Esa fecha no es válida. Escríbela en formato DD/MM/AAAA, por ejemplo 15/03/1990."
	msgInvalidPhone     = "Ese teléfono no parece válido. Debe tener al menos 7 dígitos."
	msgInvalidEmail     = "Ese correo no parece válido. Verifica que incluya '@' y '.'."
	msgEmptyAddress     = "Necesito tu dirección para continuar. Por favor escríbela."

	msgCaptureSummary = "📋 Revisa tus datos:\n\n" +
		"Documento: %s\n" +
		"Nombre: %s\n" +
		"Fecha de nacimiento: %s\n" +
		"Dirección: %s\n" +
		"Teléfono: %s\n" +
		"Correo: %s\n\n" +
		"Responde 'confirmar' para registrar tu historia clínica, o cualquier otra cosa para cancelar."

	msgRecordCreated = "✅ ¡Listo! Tu historia clínica fue registrada correctamente. " +
		"Escribe 'hola' si necesitas algo más."
	msgRecordFailed = "😔 No pudimos registrar tu historia clínica en este momento. " +
		"Por favor intenta de nuevo más tarde."

	msgCaptureCancelled = "Registro cancelado. Escribe 'hola' para volver al menú."
)

var greetingKeywords = []string{"hola", "buenas", "buenos dias", "buenos días", "menu", "menú"}

var escalationKeywords = []string{"agente", "operador", "hablar", "persona", "problema", "queja", "reclamo"}

var cancelWords = []string{"cancelar", "salir"}

var confirmWords = []string{"confirmar_registro", "si", "sí", "confirmar"}

var updateYesWords = []string{"si", "sí", "actualizar"}
