package bus

// CreateRequest asks for a new placeholder serial and its label set.
// UnitType is the preferred field; CheckerName is the legacy form whose
// first letter selects the unit type.
type CreateRequest struct {
	UnitType    string `json:"unit_type,omitempty"`
	CheckerName string `json:"checker_name,omitempty"`
}

// FinishRequest finalizes a placeholder serial with its measured model.
type FinishRequest struct {
	TempSerial    string `json:"temp_serial"`
	FinalModelKey string `json:"final_model_key"`
}

// ReprintRequest asks for a fresh label set of an existing unit. The serial
// may be given in full or as the bare four-digit sequence. Publishers use
// either key; serial_to_reprint is the older name.
type ReprintRequest struct {
	SerialNumber    string `json:"serial_number,omitempty"`
	SerialToReprint string `json:"serial_to_reprint,omitempty"`
}

// ShippingUpdate stamps or refreshes a unit's shipping timestamp.
type ShippingUpdate struct {
	SerialNumber        string `json:"serial_number"`
	TimestampExpedition string `json:"timestamp_expedition"`
}

// SavEntry opens a service visit for a returned unit.
type SavEntry struct {
	SerialNumber        string `json:"serial_number"`
	TimestampSavArrivee string `json:"timestamp_sav_arrivee"`
	Technician          string `json:"technician,omitempty"`
}

// SavDeparture closes the open service visit of a unit.
type SavDeparture struct {
	SerialNumber    string `json:"serial_number"`
	TimestampDepart string `json:"timestamp_depart"`
}

// CustomQR prints one ad hoc QR label. QRText is the legacy single-field
// form used when DisplayText and QRContent are absent.
type CustomQR struct {
	DisplayText string `json:"display_text,omitempty"`
	QRContent   string `json:"qr_content,omitempty"`
	QRText      string `json:"qr_text,omitempty"`
}

// OperationResult reports the outcome of one consumed command.
type OperationResult struct {
	Operation string `json:"operation"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// DetailedStatus is the retained device status payload.
type DetailedStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Ready     bool   `json:"ready"`
	Timestamp string `json:"timestamp"`
}
