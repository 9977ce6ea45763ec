package bus

// Topics derives every topic name from the configured prefix.
type Topics struct {
	prefix string
}

func NewTopics(prefix string) Topics {
	return Topics{prefix: prefix}
}

func (t Topics) sub(suffix string) string { return t.prefix + "/" + suffix }

// Command topics the daemon consumes.

func (t Topics) CreateLabel() string    { return t.sub("create_label") }
func (t Topics) FinishSerial() string   { return t.sub("finish_serial") }
func (t Topics) FullReprint() string    { return t.sub("request_full_reprint") }
func (t Topics) ShippingUpdate() string { return t.sub("update_shipping_timestamp") }
func (t Topics) SavEntry() string       { return t.sub("sav_entry") }
func (t Topics) SavDeparture() string   { return t.sub("sav_departure") }
func (t Topics) CreateQR() string       { return t.sub("create_qr") }

// Status topics the daemon publishes.

func (t Topics) Status() string          { return t.sub("status") }
func (t Topics) DetailedStatus() string  { return t.sub("status/detailed") }
func (t Topics) OperationResult() string { return t.sub("operation/result") }

// Commands lists every topic the daemon subscribes to.
func (t Topics) Commands() []string {
	return []string{
		t.CreateLabel(),
		t.FinishSerial(),
		t.FullReprint(),
		t.ShippingUpdate(),
		t.SavEntry(),
		t.SavDeparture(),
		t.CreateQR(),
	}
}
