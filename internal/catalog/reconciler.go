package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amezav/storefront-backend/internal/inventory"
	"github.com/amezav/storefront-backend/pkg/db/models"
	pkgerrors "github.com/amezav/storefront-backend/pkg/errors"
)

// desiredVariant is a payload variant with its value references resolved to
// durable IDs and its signature computed.
type desiredVariant struct {
	input     VariantInput
	valueIDs  []uuid.UUID
	signature Signature
	position  int
}

// variantReconciler executes the insert/update/archive/delete plan chosen by
// the space classification. All methods run inside the caller's transaction;
// any error aborts the whole edit.
type variantReconciler struct {
	repo    *Repository
	ledger  *inventory.Repository
	product *models.Product
}

// reconcileVariants diffs the desired variant set against the persisted one
// and applies the resulting plan. dimensions is the number of option axes the
// product has after option reconciliation; every variant must select exactly
// one value per axis.
func reconcileVariants(
	ctx context.Context,
	repo *Repository,
	ledger *inventory.Repository,
	product *models.Product,
	inputs []VariantInput,
	valueIDs map[string]uuid.UUID,
	dimensions int,
) (*ReconcileResult, error) {
	desired, err := resolveDesiredVariants(inputs, valueIDs, dimensions)
	if err != nil {
		return nil, err
	}

	existing, err := repo.ListActiveVariants(ctx, product.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list variants")
	}
	oldBySig := make(map[Signature]models.ProductVariant, len(existing))
	oldSet := make(map[Signature]struct{}, len(existing))
	for _, variant := range existing {
		sig := VariantSignature(variant)
		oldBySig[sig] = variant
		oldSet[sig] = struct{}{}
	}

	newSet := make(map[Signature]struct{}, len(desired))
	for sig := range desired {
		newSet[sig] = struct{}{}
	}

	change := Classify(oldSet, newSet)
	result := &ReconcileResult{Classification: change}
	rec := &variantReconciler{repo: repo, ledger: ledger, product: product}

	switch change := change.(type) {
	case NoSpaceChange:
		if err := rec.updateRetained(ctx, desired, oldBySig, result); err != nil {
			return nil, err
		}
	case SpaceExpands:
		if err := rec.updateRetained(ctx, desired, oldBySig, result); err != nil {
			return nil, err
		}
		if err := rec.insertAdded(ctx, change.Added, desired, result); err != nil {
			return nil, err
		}
	case SpaceContracts:
		if err := rec.updateRetained(ctx, desired, oldBySig, result); err != nil {
			return nil, err
		}
		if err := rec.removeContracted(ctx, change.Removed, oldBySig, result); err != nil {
			return nil, err
		}
	case SpaceMixed:
		if err := rec.updateRetained(ctx, desired, oldBySig, result); err != nil {
			return nil, err
		}
		if err := rec.insertAdded(ctx, change.Added, desired, result); err != nil {
			return nil, err
		}
		if err := rec.removeContracted(ctx, change.Removed, oldBySig, result); err != nil {
			return nil, err
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "unhandled space classification")
	}
	return result, nil
}

func resolveDesiredVariants(inputs []VariantInput, valueIDs map[string]uuid.UUID, dimensions int) (map[Signature]desiredVariant, error) {
	if len(inputs) > 0 && dimensions == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variants require at least one option")
	}

	desired := make(map[Signature]desiredVariant, len(inputs))
	for position, input := range inputs {
		if len(input.OptionValues) != dimensions {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant must select a value for every option")
		}
		resolved := make([]uuid.UUID, 0, len(input.OptionValues))
		for optionName, ref := range input.OptionValues {
			durable, ok := valueIDs[ref.ID]
			if !ok {
				return nil, pkgerrors.New(pkgerrors.CodeValidation,
					"variant references unknown value for option "+optionName)
			}
			resolved = append(resolved, durable)
		}
		if input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant stock must be non-negative")
		}

		sig := ComputeSignature(resolved)
		if _, ok := desired[sig]; ok {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "two variants share the same option-value set")
		}
		desired[sig] = desiredVariant{
			input:     input,
			valueIDs:  resolved,
			signature: sig,
			position:  position,
		}
	}
	return desired, nil
}

// updateRetained field-updates variants whose signature survives the edit.
// Identifiers are never touched; option-value links stay as they are.
func (rec *variantReconciler) updateRetained(
	ctx context.Context,
	desired map[Signature]desiredVariant,
	oldBySig map[Signature]models.ProductVariant,
	result *ReconcileResult,
) error {
	for sig, want := range desired {
		current, ok := oldBySig[sig]
		if !ok {
			continue
		}
		fields := map[string]any{
			"price_cents":            rec.priceFor(want.input),
			"compare_at_price_cents": want.input.CompareAtPriceCents,
			"sku":                    want.input.SKU,
			"image_id":               want.input.ImageID,
			"position":               want.position,
		}
		if err := rec.repo.UpdateVariantFields(ctx, current.ID, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update variant")
		}
		key := inventory.VariantStock(rec.product.ID, current.ID)
		if err := rec.ledger.SetQuantity(ctx, key, want.input.Stock); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: set variant stock")
		}
		result.UpdatedVariantIDs = append(result.UpdatedVariantIDs, current.ID)
	}
	return nil
}

// insertAdded creates the variants whose signatures are new to the space,
// with their option-value links and a fresh stock row. A signature that was
// archived in an earlier contraction is revived under its original ID so
// order history keeps pointing at the same row.
func (rec *variantReconciler) insertAdded(
	ctx context.Context,
	added []Signature,
	desired map[Signature]desiredVariant,
	result *ReconcileResult,
) error {
	for _, sig := range added {
		want := desired[sig]

		archived, err := rec.repo.FindArchivedVariantBySignature(ctx, rec.product.ID, string(sig))
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find archived variant")
		}
		if archived != nil {
			if err := rec.reviveArchived(ctx, archived, want, result); err != nil {
				return err
			}
			continue
		}

		variant := &models.ProductVariant{
			ID:                  uuid.New(),
			ProductID:           rec.product.ID,
			Signature:           string(sig),
			SKU:                 want.input.SKU,
			PriceCents:          rec.priceFor(want.input),
			CompareAtPriceCents: want.input.CompareAtPriceCents,
			ImageID:             want.input.ImageID,
			Position:            want.position,
		}
		if err := rec.repo.CreateVariant(ctx, variant, want.valueIDs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert variant")
		}
		key := inventory.VariantStock(rec.product.ID, variant.ID)
		if _, err := rec.ledger.Create(ctx, key, want.input.Stock); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create variant stock")
		}
		result.CreatedVariantIDs = append(result.CreatedVariantIDs, variant.ID)
	}
	return nil
}

// reviveArchived brings an archived variant back into the active space. Its
// option-value links survived the archival, so only the scalar fields and the
// stock row need refreshing.
func (rec *variantReconciler) reviveArchived(
	ctx context.Context,
	archived *models.ProductVariant,
	want desiredVariant,
	result *ReconcileResult,
) error {
	fields := map[string]any{
		"archived":               false,
		"price_cents":            rec.priceFor(want.input),
		"compare_at_price_cents": want.input.CompareAtPriceCents,
		"sku":                    want.input.SKU,
		"image_id":               want.input.ImageID,
		"position":               want.position,
	}
	if err := rec.repo.UpdateVariantFields(ctx, archived.ID, fields); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: revive variant")
	}
	key := inventory.VariantStock(rec.product.ID, archived.ID)
	if err := rec.ledger.SetQuantity(ctx, key, want.input.Stock); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: set variant stock")
	}
	result.CreatedVariantIDs = append(result.CreatedVariantIDs, archived.ID)
	return nil
}

// removeContracted retires variants whose signature left the space: archived
// when order history references them, otherwise hard-deleted together with
// their stock row and any media they exclusively owned.
func (rec *variantReconciler) removeContracted(
	ctx context.Context,
	removed []Signature,
	oldBySig map[Signature]models.ProductVariant,
	result *ReconcileResult,
) error {
	for _, sig := range removed {
		variant := oldBySig[sig]

		referenced, err := rec.repo.VariantReferencedByOrders(ctx, variant.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check order references")
		}
		if referenced {
			if err := rec.repo.ArchiveVariant(ctx, variant.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: archive variant")
			}
			result.ArchivedVariantIDs = append(result.ArchivedVariantIDs, variant.ID)
			continue
		}

		if err := rec.repo.DeleteVariant(ctx, variant.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete variant")
		}
		if err := rec.ledger.DeleteForVariant(ctx, rec.product.ID, variant.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete variant stock")
		}
		if variant.ImageID != nil {
			key, err := rec.releaseExclusiveImage(ctx, *variant.ImageID, variant.ID)
			if err != nil {
				return err
			}
			if key != nil {
				result.ReleasedMediaKeys = append(result.ReleasedMediaKeys, *key)
			}
		}
		result.DeletedVariantIDs = append(result.DeletedVariantIDs, variant.ID)
	}
	return nil
}

// releaseExclusiveImage deletes the media row when no other variant points at
// it, returning the storage key so the caller can remove the object after the
// transaction commits.
func (rec *variantReconciler) releaseExclusiveImage(ctx context.Context, imageID, variantID uuid.UUID) (*string, error) {
	count, err := rec.repo.CountVariantsUsingImage(ctx, imageID, variantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count image references")
	}
	if count > 0 {
		return nil, nil
	}
	media, err := rec.repo.FindMedia(ctx, imageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load media")
	}
	if err := rec.repo.DeleteMedia(ctx, media.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete media")
	}
	return &media.GCSKey, nil
}

func (rec *variantReconciler) priceFor(input VariantInput) int {
	if input.PriceCents != nil {
		return *input.PriceCents
	}
	return rec.product.BasePriceCents
}
