package variant

import (
	"github.com/goliatone/go-ticketform/pkg/catalog"
	"github.com/goliatone/go-ticketform/pkg/resolver"
	"github.com/goliatone/go-ticketform/pkg/validation"
)

// Section and field ids the built-in variants expect category templates to
// use.
const (
	SectionCSI       = "csi"
	SectionItem      = "item"
	SectionOption    = "option"
	SectionEquipment = "equipment"
	SectionPart      = "part"

	FieldGeneralName       = "general_name"
	FieldDivisions         = "divisions"
	FieldDescription       = "description"
	FieldItemName          = "item_name"
	FieldUnitOfMeasure     = "unit_of_measure"
	FieldValueList         = "value_list"
	FieldOptionName        = "option_name"
	FieldOptionValue       = "option_value"
	FieldOptionDescription = "option_description"
	FieldEquipment         = "equipment"
	FieldPartName          = "part_name"
	FieldPartNumber        = "part_number"
	FieldIsNewPart         = "is_new_part"
	FieldIsReplacement     = "is_replacement"
)

// Builtins returns the built-in variants.
func Builtins() []Variant {
	return []Variant{
		{Name: Default},
		customCSI(),
		itemCSI(),
		itemOption(),
		pedPart(),
	}
}

func customCSI() Variant {
	return Variant{
		Name:    CustomCSI,
		Aliases: []string{"csi", "custom-csi-code"},
		Resolvers: resolver.Table{
			FieldDivisions: resolver.DependentOptions{
				Kind:      catalog.KindCSIDescription,
				Binding:   catalog.Binding{"divisions": FieldDivisions},
				Target:    FieldDescription,
				Unlock:    true,
				KeepValid: true,
			},
		},
		BlurChecks: map[string]BlurCheck{
			FieldGeneralName: {
				Kind:    catalog.ExistsGeneralName,
				Binding: catalog.Binding{"name": FieldGeneralName},
				Message: "A CSI code with this name already exists",
			},
		},
		PreSubmit: []Check{
			validation.CollisionCheck{
				Kind:      catalog.ExistsCSICombination,
				SectionID: SectionCSI,
				FieldID:   FieldDescription,
				Binding:   catalog.Binding{"divisions": FieldDivisions, "description": FieldDescription},
				Message:   "This division and description combination already exists",
			},
		},
	}
}

func itemCSI() Variant {
	return Variant{
		Name:    ItemCSI,
		Aliases: []string{"item"},
		Resolvers: resolver.Table{
			FieldItemName: resolver.DependentOptions{
				Kind:    catalog.KindItemDescription,
				Binding: catalog.Binding{"item": FieldItemName},
				Target:  FieldDescription,
				Resets:  []string{FieldUnitOfMeasure, FieldValueList},
			},
			FieldDescription: resolver.UnitBroadcast{
				Kind:    catalog.KindUnitOfMeasure,
				Binding: catalog.Binding{"description": FieldDescription},
				Target:  FieldUnitOfMeasure,
			},
		},
		PreSubmit: []Check{
			validation.CollisionCheck{
				Kind:      catalog.ExistsItemCSI,
				SectionID: SectionItem,
				FieldID:   FieldDescription,
				Binding:   catalog.Binding{"item": FieldItemName, "description": FieldDescription},
				Message:   "This item already has a CSI code for this description",
			},
		},
	}
}

func itemOption() Variant {
	return Variant{
		Name:    ItemOption,
		Aliases: []string{"item-options"},
		Resolvers: resolver.Table{
			FieldItemName: resolver.DependentOptions{
				Kind:      catalog.KindOptionName,
				Binding:   catalog.Binding{"item": FieldItemName},
				Target:    FieldOptionName,
				KeepValid: true,
			},
			FieldOptionName: resolver.Propagate(),
			FieldOptionDescription: resolver.UnitBroadcast{
				Kind:    catalog.KindUnitOfMeasure,
				Binding: catalog.Binding{"description": FieldOptionDescription},
				Target:  FieldUnitOfMeasure,
			},
		},
		CarryOver: map[string][]string{
			SectionOption: {FieldOptionName},
		},
		PreSubmit: []Check{
			validation.UniqueCheck{
				SectionID: SectionOption,
				FieldID:   FieldOptionValue,
				Message:   "Each option value must be unique",
			},
			validation.CollisionCheck{
				Kind:      catalog.ExistsOptionValue,
				SectionID: SectionOption,
				FieldID:   FieldOptionValue,
				Binding:   catalog.Binding{"item": FieldItemName, "option": FieldOptionName, "value": FieldOptionValue},
				Message:   "This option value already exists for the item",
			},
		},
	}
}

func pedPart() Variant {
	exclusive := resolver.MutuallyExclusive(FieldIsNewPart, FieldIsReplacement)
	return Variant{
		Name:    PEDPart,
		Aliases: []string{"ped-equipment-part", "ped"},
		Resolvers: resolver.Table{
			FieldEquipment: resolver.DependentOptions{
				Kind:      catalog.KindPEDPartNumber,
				Binding:   catalog.Binding{"equipment": FieldEquipment},
				Target:    FieldPartNumber,
				KeepValid: true,
			},
			FieldPartNumber: resolver.UnitBroadcast{
				Kind:    catalog.KindUnitOfMeasure,
				Binding: catalog.Binding{"part": FieldPartNumber},
				Target:  FieldUnitOfMeasure,
			},
			FieldIsNewPart:     exclusive,
			FieldIsReplacement: exclusive,
		},
		BlurChecks: map[string]BlurCheck{
			FieldPartName: {
				Kind:    catalog.ExistsPEDPartName,
				Binding: catalog.Binding{"name": FieldPartName},
				Message: "A part with this name already exists",
			},
		},
		PreSubmit: []Check{
			validation.CollisionCheck{
				Kind:      catalog.ExistsPEDPart,
				SectionID: SectionPart,
				FieldID:   FieldPartNumber,
				Binding:   catalog.Binding{"equipment": FieldEquipment, "part": FieldPartNumber},
				Message:   "This part is already registered for the equipment",
			},
		},
	}
}
