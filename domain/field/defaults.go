package field

var (
	criticalityLevels = []string{"Critical", "High", "Medium", "Low"}
	priorityLevels    = []string{"Critical", "High", "Medium", "Low"}
)

func floatPtr(f float64) *float64 {
	return &f
}

// sys builds a system field whose id is derived from module and name.
func sys(m Module, order int, name, label string, t Type, required bool) Field {
	return Field{
		ID:       string(m) + "_" + name,
		Name:     name,
		Label:    label,
		Type:     t,
		Required: required,
		Order:    order,
		IsSystem: true,
	}
}

func (f Field) withOptions(opts ...string) Field {
	f.Options = opts
	return f
}

func (f Field) withDefault(v any) Field {
	f.DefaultValue = v
	return f
}

func (f Field) withPlaceholder(p string) Field {
	f.Placeholder = p
	return f
}

func (f Field) withRange(min, max *float64, message string) Field {
	f.Validation = &Validation{Min: min, Max: max, Message: message}
	return f
}

func (f Field) withPattern(pattern, message string) Field {
	f.Validation = &Validation{Pattern: pattern, Message: message}
	return f
}

// DefaultSchema returns the field table the product ships with.
// Names of these fields are the attributes the rest of the business logic reads.
func DefaultSchema() Schema {
	return MustSchema(defaultSet())
}

func defaultSet() Set {
	eq, wo, inv, sch, dash := ModuleEquipment, ModuleWorkOrders, ModuleInventory, ModuleScheduling, ModuleDashboard

	return Set{
		eq: {
			sys(eq, 1, "name", "Equipment Name", TypeText, true).withPlaceholder("e.g. Cooling Pump P-101"),
			sys(eq, 2, "type", "Equipment Type", TypeSelect, true).
				withOptions("Pump", "Motor", "Compressor", "Conveyor", "HVAC", "Electrical", "Other"),
			sys(eq, 3, "location", "Location", TypeText, true).withPlaceholder("Building / Area / Line"),
			sys(eq, 4, "criticality", "Criticality", TypeSelect, true).
				withOptions(criticalityLevels...).withDefault("Medium"),
			sys(eq, 5, "manufacturer", "Manufacturer", TypeText, false),
			sys(eq, 6, "model", "Model", TypeText, false),
			sys(eq, 7, "serialNumber", "Serial Number", TypeText, false),
			sys(eq, 8, "installDate", "Install Date", TypeDate, false),
			sys(eq, 9, "status", "Status", TypeSelect, true).
				withOptions("Operational", "Maintenance", "Down", "Retired").withDefault("Operational"),
			sys(eq, 10, "description", "Description", TypeTextarea, false),
		},
		wo: {
			sys(wo, 1, "title", "Title", TypeText, true).withPlaceholder("Short description of the work"),
			sys(wo, 2, EquipmentRefName, "Equipment", TypeSelect, true),
			sys(wo, 3, "type", "Work Type", TypeSelect, true).
				withOptions("Preventive", "Corrective", "Predictive", "Emergency", "Inspection"),
			sys(wo, 4, "priority", "Priority", TypeSelect, true).
				withOptions(priorityLevels...).withDefault("Medium"),
			sys(wo, 5, "status", "Status", TypeSelect, true).
				withOptions("Open", "In Progress", "On Hold", "Completed", "Cancelled").withDefault("Open"),
			sys(wo, 6, "assignedTo", "Assigned To", TypeText, false),
			sys(wo, 7, "dueDate", "Due Date", TypeDate, false),
			sys(wo, 8, "estimatedHours", "Estimated Hours", TypeNumber, false).
				withRange(floatPtr(0), nil, "Estimated hours cannot be negative"),
			sys(wo, 9, "contactPhone", "Contact Phone", TypeTel, false).
				withPattern(`^[0-9+()\-\s]{7,20}$`, "Enter a valid phone number"),
			sys(wo, 10, "description", "Description", TypeTextarea, false),
		},
		inv: {
			sys(inv, 1, "partNumber", "Part Number", TypeText, true).withPlaceholder("e.g. BRG-6205"),
			sys(inv, 2, "name", "Part Name", TypeText, true),
			sys(inv, 3, "category", "Category", TypeSelect, true).
				withOptions("Spare Parts", "Consumables", "Tools", "Lubricants", "Safety Equipment"),
			sys(inv, 4, "quantity", "Quantity on Hand", TypeNumber, true).
				withRange(floatPtr(0), nil, "Quantity cannot be negative"),
			sys(inv, 5, "minStock", "Minimum Stock", TypeNumber, false).
				withRange(floatPtr(0), nil, ""),
			sys(inv, 6, "unitCost", "Unit Cost", TypeNumber, false).
				withRange(floatPtr(0), nil, ""),
			sys(inv, 7, "location", "Storage Location", TypeText, false),
			sys(inv, 8, "supplier", "Supplier", TypeText, false),
			sys(inv, 9, "supplierEmail", "Supplier Email", TypeEmail, false).
				withPattern(`^[^@\s]+@[^@\s]+\.[^@\s]+$`, "Enter a valid email address"),
		},
		sch: {
			sys(sch, 1, "title", "Task Title", TypeText, true),
			sys(sch, 2, EquipmentRefName, "Equipment", TypeSelect, true),
			sys(sch, 3, "frequency", "Frequency", TypeSelect, true).
				withOptions("daily", "weekly", "monthly", "quarterly", "annually"),
			sys(sch, 4, "startDate", "Start Date", TypeDate, true),
			sys(sch, 5, "assignedTo", "Assigned To", TypeText, false),
			sys(sch, 6, "estimatedHours", "Estimated Hours", TypeNumber, false).
				withRange(floatPtr(0), nil, ""),
			sys(sch, 7, "active", "Active", TypeCheckbox, false).withDefault(true),
			sys(sch, 8, "notes", "Notes", TypeTextarea, false),
		},
		dash: {
			sys(dash, 1, "title", "Widget Title", TypeText, true),
			sys(dash, 2, "widgetType", "Widget Type", TypeSelect, true).
				withOptions("kpi", "chart", "table", "list"),
			sys(dash, 3, "metric", "Metric", TypeSelect, true).
				withOptions("mtbf", "mttr", "availability", "oee", "openWorkOrders", "backlog"),
			sys(dash, 4, "refreshInterval", "Refresh Interval (seconds)", TypeNumber, false).
				withRange(floatPtr(10), floatPtr(3600), "").withDefault(float64(60)),
			sys(dash, 5, "showTrend", "Show Trend", TypeCheckbox, false),
		},
	}
}
