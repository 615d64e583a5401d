package domain

// MenuAction determines what selecting a menu option does.
type MenuAction string

const (
	MenuActionSubmenu     MenuAction = "SUBMENU"
	MenuActionReply       MenuAction = "REPLY"
	MenuActionTicket      MenuAction = "TICKET"
	MenuActionInvoiceFlow MenuAction = "INVOICE_FLOW"
)

// MenuNode is one entry of the self-service menu tree. Root nodes have a nil
// parent. SortOrder is the number the client types to select the option; it
// is declared per node, not derived from position.
type MenuNode struct {
	ID        string     `json:"id"`
	ParentID  *string    `json:"parent_id,omitempty"`
	SortOrder int        `json:"sort_order"`
	Title     string     `json:"title"`
	Action    MenuAction `json:"action"`
	ReplyText string     `json:"reply_text,omitempty"`
}
