package web

// Feature landing page feature card
type Feature struct {
	Icon        string
	Title       string
	Description string
}

// Step how-it-works step
type Step struct {
	Number      int
	Title       string
	Description string
}

// Question FAQ entry
type Question struct {
	Q string
	A string
}

var Features = []Feature{
	{"🧠", "Consejo de Sabios", "4 IAs analizan tu consulta y llegan a un consenso. Resultados más precisos y equilibrados que cualquier IA individual."},
	{"⚡", "Modo FAST", "¿Necesitas una respuesta rápida? El modo FAST usa una sola IA para respuestas instantáneas por solo 1 crédito."},
	{"🎯", "Perfil de Entrenamiento", "Configura tu tono, valores y estilo. La IA genera contenido que suena exactamente como tú."},
	{"🔑", "BYOA (Bring Your Own API)", "Usa tus propias API keys para costes aún menores. Compatible con OpenAI, Anthropic, DeepSeek y Perplexity."},
	{"📱", "Telegram + Web", "Genera contenido desde Telegram o gestiona todo desde el dashboard web. Sincronización perfecta."},
	{"📊", "Historial y Analytics", "Revisa todo tu contenido generado. Aprende qué funciona mejor con insights detallados."},
}

var Steps = []Step{
	{1, "Crea tu cuenta", "Regístrate y recibe 50 créditos de bienvenida para probar el servicio."},
	{2, "Vincula Telegram", "Genera un código en el dashboard y envíalo al bot para sincronizar tus cuentas."},
	{3, "Configura tu perfil", "Define tu tono, tus temas y tu audiencia para que el contenido suene como tú."},
	{4, "Genera contenido", "Pide posts, análisis o imágenes desde Telegram y revisa el historial en la web."},
}

var FAQ = []Question{
	{"¿Qué es el Consejo de Sabios?", "Es nuestro sistema de consenso de IA. Cuando usas el modo Consenso, 4 IAs diferentes (DeepSeek, Perplexity, GPT-4 y Claude) analizan tu consulta de forma independiente y luego sintetizan una respuesta que combina lo mejor de cada una."},
	{"¿Qué diferencia hay entre modo FAST y Consenso?", "El modo FAST usa una sola IA para respuestas rápidas (1 crédito). El modo Consenso usa 4 IAs y cuesta 5 créditos, pero ofrece respuestas más completas y equilibradas."},
	{"¿Qué es BYOA?", "BYOA significa 'Bring Your Own API'. Puedes configurar tus propias API keys de OpenAI, Anthropic, DeepSeek o Perplexity y usar las IAs a coste de proveedor."},
	{"¿Cómo funciona la vinculación Telegram ↔ Web?", "Genera un código de vinculación en el dashboard y envíalo al bot. Una vez vinculado, créditos e historial se sincronizan automáticamente."},
	{"¿Qué es el perfil de entrenamiento?", "Es tu perfil personalizado que la IA usa para generar contenido: descripción, tono, valores, temas, hashtags y estilo de escritura."},
	{"¿Los créditos caducan?", "Los créditos de tu plan mensual se renuevan cada mes. Los créditos comprados en packs se acumulan y no caducan."},
	{"¿Puedo cambiar de plan?", "Sí, puedes subir o bajar de plan en cualquier momento desde la página de créditos."},
}
