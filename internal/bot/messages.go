package bot

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/egresos-bot/internal/models"
)

const (
	msgCategoryMenu   = "1. Racional\n2. Negocio\n3. Rebeca"
	msgAskCategory    = "🏷️ Categoría (responde con número):\n" + msgCategoryMenu
	msgRetryCategory  = "Elige 1, 2 o 3:\n" + msgCategoryMenu
	msgRetryAmount    = "Monto inválido 🙈. Prueba con 21.990 o 21990."
	msgAskDescription = "📝 Descripción (opcional). Escribe “-” para omitir."
	msgConfirmHelp    = "Responde 1 para guardar o 2 para cancelar."
	msgCancelled      = "🛑 Cancelado. Manda cualquier mensaje para registrar otro."
	msgDenied         = "❌ Cancelado. Manda cualquier mensaje si quieres empezar de nuevo."
	msgFallback       = "Hola 👋 Manda cualquier mensaje para registrar un egreso.\nFlujo: monto → (1/2/3) → descripción → confirmar."
)

// askAmountText greets the sender and asks for the amount.
func askAmountText(name string) string {
	return fmt.Sprintf("Hola%s!\n\n💸 ¿Monto del egreso? (ej: 21.990)\nEscribe “cancelar” para salir.", formatGreeting(name))
}

// confirmText summarises the draft and asks for confirmation.
func confirmText(d models.Draft) string {
	desc := "(sin descripción)"
	if d.Description != nil && *d.Description != "" {
		desc = *d.Description
	}

	var sb strings.Builder
	sb.WriteString("Confirma:\n")
	fmt.Fprintf(&sb, "• Monto: $%s\n", formatAmount(draftAmount(d)))
	fmt.Fprintf(&sb, "• Categoría: %s\n", d.Category)
	fmt.Fprintf(&sb, "• Desc: %s\n", desc)
	fmt.Fprintf(&sb, "• Fecha: %s\n\n", d.Date)
	sb.WriteString("¿Guardo? " + msgConfirmHelp)
	return sb.String()
}

// savedText reports a committed expense back to the sender.
func savedText(name string, exp *models.Expense) string {
	note := ""
	if exp.Note != "" {
		note = fmt.Sprintf(" (“%s”)", exp.Note)
	}
	return fmt.Sprintf(
		"✅ Listo%s! Se registró el egreso de $%s en \"%s\"%s para la fecha %s.\nYa figura en la web.",
		formatGreeting(name), formatAmount(exp.Amount), exp.Category, note, exp.Date,
	)
}

// formatGreeting returns a greeting suffix with the sender's name.
func formatGreeting(name string) string {
	if name == "" {
		return ""
	}
	return ", " + name
}

func draftAmount(d models.Draft) decimal.Decimal {
	if d.Amount == nil {
		return decimal.Zero
	}
	return *d.Amount
}

// formatAmount renders an amount the way Chilean pesos are written:
// "." groups thousands and "," separates decimals.
func formatAmount(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}

	intPart, fracPart, _ := strings.Cut(amount.String(), ".")

	var sb strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte('.')
		}
		sb.WriteRune(r)
	}

	if fracPart != "" {
		sb.WriteByte(',')
		sb.WriteString(fracPart)
	}

	return sign + sb.String()
}
