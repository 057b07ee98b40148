package security

// In-memory client registry (replace with DB/config later)
type Client struct {
	ID      string
	Secret  string
	Perms   []string // e.g. {"cart.write","orders.write"}
	Enabled bool
}

var Clients = map[string]Client{
	"storefront":    {ID: "storefront", Secret: "storefront-secret", Perms: []string{"products.read", "cart.write", "orders.read", "orders.write"}, Enabled: true},
	"back-office":   {ID: "back-office", Secret: "back-office-secret", Perms: []string{"products.read", "products.write", "orders.read", "orders.write", "admin"}, Enabled: true},
	"svc-analytics": {ID: "svc-analytics", Secret: "ana-secret", Perms: []string{"orders.read", "products.read"}, Enabled: true},
}
