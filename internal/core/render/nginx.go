package render

import (
	"fmt"
	"strings"
)

// =============================================================================
// Reverse Proxy Vhost Rendering
// =============================================================================

// VhostSpec describes the nginx server block in front of the application.
type VhostSpec struct {
	ServerNames    []string
	ListenPort     int
	UpstreamHost   string
	UpstreamPort   int
	TimeoutSeconds int // applied to connect, send, and read phases
}

// Vhost renders the nginx server block.
//
// Headers forwarded: Host, X-Real-IP, X-Forwarded-For, X-Forwarded-Proto.
// WebSocket upgrade headers are passed through unconditionally; nginx only
// acts on them when a client actually requests an upgrade. The TLS section
// is emitted as commented template text for operators who terminate TLS on
// this host later.
func Vhost(s VhostSpec) string {
	var b strings.Builder
	b.WriteString("server {\n")
	fmt.Fprintf(&b, "    listen %d;\n", s.ListenPort)
	fmt.Fprintf(&b, "    server_name %s;\n", strings.Join(s.ServerNames, " "))
	b.WriteString("\n")
	b.WriteString("    location / {\n")
	fmt.Fprintf(&b, "        proxy_pass http://%s:%d;\n", s.UpstreamHost, s.UpstreamPort)
	b.WriteString("        proxy_set_header Host $host;\n")
	b.WriteString("        proxy_set_header X-Real-IP $remote_addr;\n")
	b.WriteString("        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;\n")
	b.WriteString("        proxy_set_header X-Forwarded-Proto $scheme;\n")
	b.WriteString("\n")
	b.WriteString("        proxy_http_version 1.1;\n")
	b.WriteString("        proxy_set_header Upgrade $http_upgrade;\n")
	b.WriteString("        proxy_set_header Connection \"upgrade\";\n")
	b.WriteString("\n")
	fmt.Fprintf(&b, "        proxy_connect_timeout %ds;\n", s.TimeoutSeconds)
	fmt.Fprintf(&b, "        proxy_send_timeout %ds;\n", s.TimeoutSeconds)
	fmt.Fprintf(&b, "        proxy_read_timeout %ds;\n", s.TimeoutSeconds)
	b.WriteString("    }\n")
	b.WriteString("\n")
	b.WriteString("    # TLS termination template. Uncomment after issuing certificates.\n")
	b.WriteString("    # listen 443 ssl;\n")
	b.WriteString("    # ssl_certificate     /etc/ssl/certs/app.pem;\n")
	b.WriteString("    # ssl_certificate_key /etc/ssl/private/app.key;\n")
	b.WriteString("}\n")
	return b.String()
}
