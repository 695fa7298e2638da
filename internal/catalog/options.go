package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/amezav/storefront-backend/pkg/db/models"
	pkgerrors "github.com/amezav/storefront-backend/pkg/errors"
)

// reconcileOptions upserts options by (productID, name) and values by
// (optionID, value), updating display order on both. It returns the mapping
// from every value's client-supplied identifier to its durable ID; variant
// payloads reference values through those client identifiers, so the mapping
// must cover the whole payload before variants are reconciled.
//
// Options and values are never deleted here. Values orphaned by a space
// contraction stay in place so signatures of archived variants remain stable.
func reconcileOptions(ctx context.Context, repo *Repository, productID uuid.UUID, options []OptionInput) (map[string]uuid.UUID, error) {
	if err := validateOptionInputs(options); err != nil {
		return nil, err
	}

	existing, err := repo.ListOptions(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list options")
	}
	optionsByName := make(map[string]models.ProductOption, len(existing))
	for _, option := range existing {
		optionsByName[option.Name] = option
	}

	valueIDs := make(map[string]uuid.UUID)
	for optionPos, input := range options {
		name := strings.TrimSpace(input.Name)

		option, found := optionsByName[name]
		if !found {
			option = models.ProductOption{
				ID:        uuid.New(),
				ProductID: productID,
				Name:      name,
				Position:  optionPos,
			}
			if err := repo.CreateOption(ctx, &option); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert option")
			}
		} else if option.Position != optionPos {
			if err := repo.UpdateOptionPosition(ctx, option.ID, optionPos); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reorder option")
			}
		}

		valuesByValue := make(map[string]models.ProductOptionValue, len(option.Values))
		for _, value := range option.Values {
			valuesByValue[value.Value] = value
		}

		for valuePos, valueInput := range input.Values {
			raw := strings.TrimSpace(valueInput.Value)

			value, valueFound := valuesByValue[raw]
			if !valueFound {
				value = models.ProductOptionValue{
					ID:       uuid.New(),
					OptionID: option.ID,
					Value:    raw,
					Position: valuePos,
				}
				if err := repo.CreateOptionValue(ctx, &value); err != nil {
					return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert option value")
				}
			} else if value.Position != valuePos {
				if err := repo.UpdateOptionValuePosition(ctx, value.ID, valuePos); err != nil {
					return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reorder option value")
				}
			}
			valueIDs[valueInput.ID] = value.ID
		}
	}
	return valueIDs, nil
}

func validateOptionInputs(options []OptionInput) error {
	seenNames := make(map[string]struct{}, len(options))
	seenClientIDs := make(map[string]struct{})
	for _, option := range options {
		name := strings.TrimSpace(option.Name)
		if name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "option name is required")
		}
		if _, ok := seenNames[name]; ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate option name "+name)
		}
		seenNames[name] = struct{}{}

		if len(option.Values) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "option "+name+" needs at least one value")
		}
		seenValues := make(map[string]struct{}, len(option.Values))
		for _, value := range option.Values {
			raw := strings.TrimSpace(value.Value)
			if raw == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "option "+name+" has an empty value")
			}
			if _, ok := seenValues[raw]; ok {
				return pkgerrors.New(pkgerrors.CodeValidation, "duplicate value "+raw+" under option "+name)
			}
			seenValues[raw] = struct{}{}

			if strings.TrimSpace(value.ID) == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "option value "+raw+" is missing an identifier")
			}
			if _, ok := seenClientIDs[value.ID]; ok {
				return pkgerrors.New(pkgerrors.CodeValidation, "option value identifier reused: "+value.ID)
			}
			seenClientIDs[value.ID] = struct{}{}
		}
	}
	return nil
}
