package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// ProjectionBuilder renders stored recipes and users into their read form,
// including the flags that depend on who is looking
type ProjectionBuilder struct {
	db *gorm.DB
}

// NewProjectionBuilder creates a new ProjectionBuilder instance
func NewProjectionBuilder(db *gorm.DB) *ProjectionBuilder {
	return &ProjectionBuilder{db: db}
}

// renderContext holds the viewer's membership sets for one render call.
// Nil sets mean "no memberships", which is what anonymous viewers get.
type renderContext struct {
	viewer     *types.Viewer
	favorites  map[uint]bool
	cart       map[uint]bool
	subscribed map[uint]bool
}

// newRenderContext loads the viewer's memberships for the given recipes.
// It issues one query per flag regardless of how many recipes are rendered
// and none for anonymous viewers.
func (b *ProjectionBuilder) newRenderContext(ctx context.Context, recipes []models.Recipe, viewer *types.Viewer) (*renderContext, error) {
	rc := &renderContext{viewer: viewer}
	if viewer == nil || len(recipes) == 0 {
		return rc, nil
	}

	recipeIDs := make([]uint, 0, len(recipes))
	authorIDs := make([]uint, 0, len(recipes))
	for i := range recipes {
		recipeIDs = append(recipeIDs, recipes[i].ID)
		authorIDs = append(authorIDs, recipes[i].AuthorID)
	}

	var err error
	if rc.favorites, err = b.membershipSet(ctx, &models.Favorite{}, viewer.UserID, recipeIDs); err != nil {
		return nil, fmt.Errorf("failed to load favorites: %w", err)
	}
	if rc.cart, err = b.membershipSet(ctx, &models.ShoppingCartItem{}, viewer.UserID, recipeIDs); err != nil {
		return nil, fmt.Errorf("failed to load shopping cart: %w", err)
	}
	if rc.subscribed, err = b.subscribedSet(ctx, viewer.UserID, uniquePositive(authorIDs)); err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	return rc, nil
}

func (b *ProjectionBuilder) membershipSet(ctx context.Context, model interface{}, userID uint, recipeIDs []uint) (map[uint]bool, error) {
	var ids []uint
	err := b.db.WithContext(ctx).Model(model).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return toSet(ids), nil
}

func (b *ProjectionBuilder) subscribedSet(ctx context.Context, userID uint, authorIDs []uint) (map[uint]bool, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}
	var ids []uint
	err := b.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND author_id IN ?", userID, authorIDs).
		Pluck("author_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return toSet(ids), nil
}

// Render renders recipes loaded with their details, preserving order
func (b *ProjectionBuilder) Render(ctx context.Context, recipes []models.Recipe, viewer *types.Viewer) ([]types.RecipeResponse, error) {
	rc, err := b.newRenderContext(ctx, recipes, viewer)
	if err != nil {
		return nil, err
	}

	out := make([]types.RecipeResponse, 0, len(recipes))
	for i := range recipes {
		out = append(out, renderRecipe(rc, &recipes[i]))
	}
	return out, nil
}

// RenderOne renders a single recipe
func (b *ProjectionBuilder) RenderOne(ctx context.Context, recipe *models.Recipe, viewer *types.Viewer) (types.RecipeResponse, error) {
	rendered, err := b.Render(ctx, []models.Recipe{*recipe}, viewer)
	if err != nil {
		return types.RecipeResponse{}, err
	}
	return rendered[0], nil
}

// RenderUser renders a user with is_subscribed relative to viewer
func (b *ProjectionBuilder) RenderUser(ctx context.Context, user *models.User, viewer *types.Viewer) (types.UserResponse, error) {
	if viewer == nil {
		return renderUser(user, false), nil
	}
	set, err := b.subscribedSet(ctx, viewer.UserID, []uint{user.ID})
	if err != nil {
		return types.UserResponse{}, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	return renderUser(user, set[user.ID]), nil
}

func renderRecipe(rc *renderContext, r *models.Recipe) types.RecipeResponse {
	resp := types.RecipeResponse{
		ID:               r.ID,
		Name:             r.Name,
		Image:            r.Image,
		Text:             r.Text,
		CookingTime:      r.CookingTime,
		IsFavorited:      rc.favorites[r.ID],
		IsInShoppingCart: rc.cart[r.ID],
		Tags:             make([]types.TagResponse, 0, len(r.RecipeTags)),
		Ingredients:      make([]types.IngredientInRecipe, 0, len(r.RecipeIngredients)),
	}

	if r.Author != nil {
		resp.Author = renderUser(r.Author, rc.subscribed[r.AuthorID])
	} else {
		resp.Author = types.UserResponse{ID: r.AuthorID}
	}

	for _, rt := range r.RecipeTags {
		if rt.Tag == nil {
			continue
		}
		resp.Tags = append(resp.Tags, types.TagResponse{ID: rt.Tag.ID, Name: rt.Tag.Name, Slug: rt.Tag.Slug})
	}
	for _, ri := range r.RecipeIngredients {
		line := types.IngredientInRecipe{ID: ri.IngredientID, Amount: ri.Amount}
		if ri.Ingredient != nil {
			line.Name = ri.Ingredient.Name
			line.MeasurementUnit = ri.Ingredient.MeasurementUnit
		}
		resp.Ingredients = append(resp.Ingredients, line)
	}
	return resp
}

func renderUser(u *models.User, subscribed bool) types.UserResponse {
	return types.UserResponse{
		Email:        u.Email,
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
}

// ShortRecipe renders the compact recipe form
func ShortRecipe(r *models.Recipe) types.ShortRecipe {
	return types.ShortRecipe{
		ID:          r.ID,
		Name:        r.Name,
		Image:       r.Image,
		CookingTime: r.CookingTime,
	}
}

func toSet(ids []uint) map[uint]bool {
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
