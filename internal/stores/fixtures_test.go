package stores

import (
	"time"

	"github.com/adv4nt4ge/grocery-scraper/internal/ingest"
)

// snapshot fabricates a rendered-DOM page snapshot around an HTML fixture.
func snapshot(url string, page int, hasMore bool, body string) ingest.PageSnapshot {
	return ingest.PageSnapshot{
		Kind:       ingest.SnapshotDOM,
		URL:        url,
		Page:       page,
		StatusCode: 200,
		Body:       []byte(body),
		HasMore:    hasMore,
		FetchedAt:  time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC),
	}
}

const silpoListingHTML = `<!DOCTYPE html><html><body>
<nav>
  <a data-autotestid="ssr-menu-categories__link" href="/category/frukty-ovochi-freshi-4788">Фрукти, овочі, фреші</a>
  <a data-autotestid="ssr-menu-categories__link" href="/category/molochni-produkty-ta-iaitsia-234">Молочні продукти та яйця</a>
</nav>
<div class="product-card-list">
  <div data-autotestid="shop-silpo-product-card">
    <a href="/product/kava-lavazza-250g"><img src="/images/kava.webp" alt=""></a>
    <div class="product-card__title">Кава мелена Lavazza Qualita Oro 250г</div>
    <div class="product-card-price__displayPrice">329,99 ₴</div>
    <div class="product-card-price__displayOldPrice">419,00 ₴</div>
  </div>
  <div data-autotestid="shop-silpo-product-card">
    <a href="/product/moloko-prostokvashyno-2-5"><img src="/images/moloko.webp" alt=""></a>
    <div class="product-card__title">Молоко Простоквашино 2,5% 870г</div>
    <div class="product-card-price__displayPrice">46,90 ₴</div>
  </div>
  <div data-autotestid="shop-silpo-product-card">
    <div class="product-card__title">Товар без ціни</div>
  </div>
</div>
</body></html>`

const varusListingHTML = `<!DOCTYPE html><html><body>
<nav><div class="a-megamenu-item--main"><a href="/bakaliya">Бакалія</a></div></nav>
<div class="products">
  <div class="sf-product-card">
    <a href="/hrechka-khutorok-800g"><img src="/img/hrechka.jpg"></a>
    <div class="sf-product-card__title">Крупа гречана Хуторок 800г</div>
    <span class="sf-price__special">52,30 грн</span>
    <span class="sf-price__regular">64,90 грн</span>
  </div>
  <div class="sf-product-card">
    <a href="/oliya-oleina-1l"><img src="/img/oliya.jpg"></a>
    <div class="sf-product-card__title">Олія соняшникова Олейна 1л</div>
    <span class="sf-price__regular">89,50 грн</span>
  </div>
</div>
<a data-transaction-name="Pagination - Go To Last" href="/bakaliya?page=7">7</a>
</body></html>`

const metroListingHTML = `<!DOCTYPE html><html><body>
<nav>
  <a href="/uk/categories/bakery-metro/">Хлібобулочні вироби</a>
  <a href="/uk/categories/dairy-and-eggs-metro/">Молочні продукти та яйця</a>
  <a href="/uk/categories/dairy-and-eggs-metro/">Молочні продукти та яйця</a>
</nav>
<div class="breadcrumbs">
  <span data-marker="Disabled Breadcrumb">Головна</span>
  <span data-marker="Disabled Breadcrumb">Бакалія</span>
  <span data-marker="Disabled Breadcrumb">Крупи</span>
</div>
<div class="products">
  <a data-testid="product-tile" href="/uk/products/rys-metro-chef-1kg/">
    <img src="/img/rys.jpg">
    <div class="ProductTile__title">Рис Metro Chef довгозернистий 1кг</div>
    <div class="Price"><span class="Price__value_caption">74,90 грн</span></div>
  </a>
  <div data-testid="product-tile">
    <a href="/uk/products/makarony-870g/"><img src="/img/makarony.jpg"></a>
    <div class="ProductTile__title">Макарони спіраль 870г</div>
    <div class="Price"><span class="Price__value_mobile">38,20 грн</span><span class="Price__value_old">45,00 грн</span></div>
  </div>
</div>
</body></html>`

const atbListingHTML = `<!DOCTYPE html><html><body>
<div class="catalog-list">
  <article class="catalog-item">
    <a href="/product/285-bakaliya/hrechka-korolivska-800g">
      <img class="catalog-item__img" src="/img/hrechka.webp" alt="Крупа гречана Королівська 800г">
    </a>
    <div class="catalog-item__name">Крупа гречана Королівська 800г</div>
    <div class="product-price">
      <span class="product-price__top">49.<span class="product-price__coin">80</span></span>
      <span class="product-price__bottom">58.<span class="product-price__coin">90</span></span>
    </div>
  </article>
  <article class="catalog-item">
    <a href="/product/285-bakaliya/sil-artemsil-1kg">
      <img class="catalog-item__img" src="/img/sil.webp" alt="Сіль кухонна Артемсіль 1кг">
    </a>
    <div class="product-price">
      <span class="product-price__top">14.<span class="product-price__coin">50</span></span>
    </div>
  </article>
  <article class="catalog-item">
    <div class="catalog-item__name">Товар без ціни</div>
  </article>
</div>
</body></html>`

const emptyListingHTML = `<!DOCTYPE html><html><body>
<div class="empty-results">Немає товарів за вашим запитом</div>
</body></html>`
