package enum

// QueueAction identifies the server operation an offline queue entry will be
// replayed as.
type QueueAction string

const (
	QueueActionSaleAdd     QueueAction = "sale.add"
	QueueActionSaleVoid    QueueAction = "sale.void"
	QueueActionOrderSet    QueueAction = "order.set"
	QueueActionOrderRemove QueueAction = "order.remove"
	QueueActionNoteUpdate  QueueAction = "note.update"
)

// Valid reports whether the action is one of the known queue actions.
func (a QueueAction) Valid() bool {
	switch a {
	case QueueActionSaleAdd, QueueActionSaleVoid, QueueActionOrderSet,
		QueueActionOrderRemove, QueueActionNoteUpdate:
		return true
	}
	return false
}
