// Package templates renders localized email content for notification requests.
package templates

import (
	"errors"
	"fmt"
	"strings"
	"text/template"
)

var ErrUnknownTemplate = errors.New("unknown template")

const DefaultLanguage = "es"

type Message struct {
	Subject string
	Body    string
}

type source struct {
	subject string
	body    string
}

// sources is keyed by template key, then language.
var sources = map[string]map[string]source{
	"booking.created": {
		"es": {
			subject: "Solicitud de consulta {{.code}} recibida",
			body: `Hola{{with .name}} {{.}}{{end}},

Hemos recibido tu solicitud de {{.type_name}} para el {{.date}} a las {{.time}} ({{.duration_minutes}} min).
Código de reserva: {{.code}}
{{if eq .status "confirmed"}}Tu cita está confirmada.{{else}}Te avisaremos cuando la confirmemos.{{end}}
`,
		},
		"en": {
			subject: "Consultation request {{.code}} received",
			body: `Hello{{with .name}} {{.}}{{end}},

We received your {{.type_name}} request for {{.date}} at {{.time}} ({{.duration_minutes}} min).
Booking code: {{.code}}
{{if eq .status "confirmed"}}Your appointment is confirmed.{{else}}We will let you know once it is confirmed.{{end}}
`,
		},
	},
	"booking.confirmed": {
		"es": {
			subject: "Consulta {{.code}} confirmada",
			body: `Hola{{with .name}} {{.}}{{end}},

Tu {{.type_name}} del {{.date}} a las {{.time}} está confirmada.
Código de reserva: {{.code}}
`,
		},
		"en": {
			subject: "Consultation {{.code}} confirmed",
			body: `Hello{{with .name}} {{.}}{{end}},

Your {{.type_name}} on {{.date}} at {{.time}} is confirmed.
Booking code: {{.code}}
`,
		},
	},
	"booking.cancelled": {
		"es": {
			subject: "Consulta {{.code}} cancelada",
			body: `Hola{{with .name}} {{.}}{{end}},

Tu {{.type_name}} del {{.date}} a las {{.time}} ha sido cancelada.
{{with .cancel_reason}}Motivo: {{.}}
{{end}}`,
		},
		"en": {
			subject: "Consultation {{.code}} cancelled",
			body: `Hello{{with .name}} {{.}}{{end}},

Your {{.type_name}} on {{.date}} at {{.time}} has been cancelled.
{{with .cancel_reason}}Reason: {{.}}
{{end}}`,
		},
	},
	"booking.rescheduled": {
		"es": {
			subject: "Consulta {{.code}} reprogramada",
			body: `Hola{{with .name}} {{.}}{{end}},

Tu {{.type_name}} se ha movido al {{.date}} a las {{.time}}.
Código de reserva: {{.code}}
`,
		},
		"en": {
			subject: "Consultation {{.code}} rescheduled",
			body: `Hello{{with .name}} {{.}}{{end}},

Your {{.type_name}} has been moved to {{.date}} at {{.time}}.
Booking code: {{.code}}
`,
		},
	},
	"booking.reminder.3h": {
		"es": {
			subject: "Recordatorio: tu consulta es hoy a las {{.time}}",
			body: `Hola{{with .name}} {{.}}{{end}},

Te recordamos tu {{.type_name}} de hoy, {{.date}}, a las {{.time}}.
Código de reserva: {{.code}}
`,
		},
		"en": {
			subject: "Reminder: your consultation is today at {{.time}}",
			body: `Hello{{with .name}} {{.}}{{end}},

A reminder of your {{.type_name}} today, {{.date}}, at {{.time}}.
Booking code: {{.code}}
`,
		},
	},
	"booking.reminder.30m": {
		"es": {
			subject: "Tu consulta empieza en 30 minutos",
			body: `Hola{{with .name}} {{.}}{{end}},

Tu {{.type_name}} empieza a las {{.time}}.
Código de reserva: {{.code}}
`,
		},
		"en": {
			subject: "Your consultation starts in 30 minutes",
			body: `Hello{{with .name}} {{.}}{{end}},

Your {{.type_name}} starts at {{.time}}.
Booking code: {{.code}}
`,
		},
	},
}

type compiled struct {
	subject *template.Template
	body    *template.Template
}

type Renderer struct {
	templates map[string]map[string]compiled
}

// NewRenderer parses every built-in template.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[string]map[string]compiled, len(sources))}
	for key, langs := range sources {
		r.templates[key] = make(map[string]compiled, len(langs))
		for lang, src := range langs {
			subject, err := template.New(key + ".subject." + lang).Option("missingkey=zero").Parse(src.subject)
			if err != nil {
				return nil, fmt.Errorf("parse %s/%s subject: %w", key, lang, err)
			}
			body, err := template.New(key + ".body." + lang).Option("missingkey=zero").Parse(src.body)
			if err != nil {
				return nil, fmt.Errorf("parse %s/%s body: %w", key, lang, err)
			}
			r.templates[key][lang] = compiled{subject: subject, body: body}
		}
	}
	return r, nil
}

// Render falls back to DefaultLanguage when lang has no translation.
func (r *Renderer) Render(key, lang string, params map[string]string) (Message, error) {
	langs, ok := r.templates[key]
	if !ok {
		return Message{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, key)
	}
	t, ok := langs[strings.ToLower(lang)]
	if !ok {
		t = langs[DefaultLanguage]
	}
	if params == nil {
		params = map[string]string{}
	}

	var subject, body strings.Builder
	if err := t.subject.Execute(&subject, params); err != nil {
		return Message{}, err
	}
	if err := t.body.Execute(&body, params); err != nil {
		return Message{}, err
	}
	return Message{Subject: strings.TrimSpace(subject.String()), Body: body.String()}, nil
}
